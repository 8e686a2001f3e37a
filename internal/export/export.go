// Package export writes booking lists to Excel workbooks.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"beachbookings/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{"Date", "Start", "End", "Duration", "Court", "Facility", "Players", "Max", "Owner", "Player names"}

// Exporter renders bookings in the configured timezone.
type Exporter struct {
	loc *time.Location
}

func NewExporter(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{loc: loc}
}

// FileName is the download name for a route export taken at now.
func FileName(route string, now time.Time) string {
	name := strings.Trim(route, "/")
	if name == "" {
		name = "home"
	}
	return fmt.Sprintf("bookings_%s_%s.xlsx", name, now.Format("2006-01-02"))
}

// Write streams an xlsx with one row per booking in the given order.
// names maps user ids to display names; unknown ids are written as is.
func (e *Exporter) Write(w io.Writer, title string, bookings []*models.Booking, names map[string]string, facilities map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetCellValue(sheetName, "A1", title)
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, b := range bookings {
		row := i + 3
		values := e.rowValues(b, names, facilities)
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "C", 12)
	_ = f.SetColWidth(sheetName, "E", "F", 18)
	_ = f.SetColWidth(sheetName, "I", "I", 20)
	_ = f.SetColWidth(sheetName, "J", "J", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func (e *Exporter) rowValues(b *models.Booking, names, facilities map[string]string) []interface{} {
	start := b.Date.In(e.loc)
	end := ""
	if b.Duration > 0 {
		end = b.EndsAt().In(e.loc).Format("15:04")
	}

	maxPlayers := "unlimited"
	if b.MaxPlayers > 0 {
		maxPlayers = fmt.Sprint(b.MaxPlayers)
	}

	players := make([]string, 0, len(b.Players))
	for _, id := range b.Players {
		players = append(players, lookup(names, id))
	}

	return []interface{}{
		start.Format("2006-01-02"),
		start.Format("15:04"),
		end,
		b.Duration,
		models.StringValue(b.Court),
		lookup(facilities, models.StringValue(b.FacilityID)),
		len(b.Players),
		maxPlayers,
		lookup(names, b.UserID),
		strings.Join(players, ", "),
	}
}

func lookup(m map[string]string, id string) string {
	if v, ok := m[id]; ok && v != "" {
		return v
	}
	return id
}
