package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"beachbookings/internal/config"
	"beachbookings/internal/database"
	"beachbookings/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type FacilitiesConfig struct {
	Facilities []*models.Facility `yaml:"facilities"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		facilitiesPath = flag.String("facilities", "configs/facilities.yaml", "path to facilities yaml")
		dbPath         = flag.String("db", "./data/bookings.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*facilitiesPath)
	if err != nil {
		return fmt.Errorf("read facilities: %w", err)
	}
	var cfg FacilitiesConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse facilities: %w", err)
	}
	if len(cfg.Facilities) == 0 {
		return fmt.Errorf("no facilities in yaml")
	}
	if err = config.ValidateFacilities(cfg.Facilities); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err = db.SetFacilities(ctx, cfg.Facilities); err != nil {
		return fmt.Errorf("store facilities: %w", err)
	}

	fmt.Printf("done: facilities=%d\n", len(cfg.Facilities))
	return nil
}
