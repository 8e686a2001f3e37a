package models

import "time"

type Facility struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Address   string    `yaml:"address" json:"address"`
	Courts    []string  `yaml:"courts" json:"courts"`
	Durations []string  `yaml:"durations" json:"durations"` // empty = free-form
	CreatedAt time.Time `yaml:"-" json:"created_at"`
	UpdatedAt time.Time `yaml:"-" json:"updated_at"`
}

func (f *Facility) HasCourt(court string) bool {
	return len(f.Courts) == 0 || contains(f.Courts, court)
}

// AllowsDuration reports whether minutes is one of the fixed durations.
// Durations are stored as minute strings, e.g. "60", "90".
func (f *Facility) AllowsDuration(minutes string) bool {
	return len(f.Durations) == 0 || contains(f.Durations, minutes)
}
