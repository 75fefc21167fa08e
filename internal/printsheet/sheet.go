// Package printsheet produces the printable loading sheet handed to the
// crew: HTML from an embedded template, PDF through headless Chrome, and an
// optional archive copy in an S3-compatible bucket.
package printsheet

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/erazemk/loadout/internal/model"
)

//go:embed templates/sheet.html
var templateFS embed.FS

var sheetTemplate = template.Must(template.ParseFS(templateFS, "templates/sheet.html"))

// Sheet is the data printed for one loading list.
type Sheet struct {
	ListID        int64
	SiteName      string
	Date          string
	ReturnDate    string
	TeamName      string
	Notes         string
	Lines         []Line
	TotalLines    int
	TotalQuantity int
	PrintedAt     string
}

// Line is one allocation on the sheet.
type Line struct {
	Name     string
	Category string
	Quantity int
	Loaded   bool
}

// FromList builds a sheet from a list with its allocations loaded.
func FromList(l *model.LoadingList, printedAt time.Time) Sheet {
	s := Sheet{
		ListID:     l.ID,
		SiteName:   l.SiteName,
		Date:       l.Date,
		ReturnDate: l.ReturnDate,
		TeamName:   l.TeamName,
		Notes:      l.Notes,
		PrintedAt:  printedAt.Format("2006-01-02 15:04"),
	}
	for _, a := range l.Allocations {
		line := Line{Quantity: a.Quantity, Loaded: a.Loaded}
		if a.Item != nil {
			line.Name = a.Item.Name
			line.Category = a.Item.Category
		} else {
			line.Name = fmt.Sprintf("Item %d", a.ItemID)
		}
		s.Lines = append(s.Lines, line)
		s.TotalQuantity += a.Quantity
	}
	s.TotalLines = len(s.Lines)
	return s
}

// Render writes the sheet as a standalone HTML document.
func Render(w io.Writer, s Sheet) error {
	if err := sheetTemplate.Execute(w, s); err != nil {
		return fmt.Errorf("rendering loading sheet: %w", err)
	}
	return nil
}

// FileName is the download and archive name of a sheet's PDF.
func FileName(s Sheet) string {
	return fmt.Sprintf("loading-list-%d-%s.pdf", s.ListID, s.Date)
}
