// Package sheets reconciles records against a remote tabular store.
package sheets

import (
	"context"
	"errors"

	"gigsync/internal/models"
)

// Store errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrSheetNotFound        = errors.New("sheet not found")
	ErrInvalidRange         = errors.New("invalid A1 range")
)

// Column layout of a sheet.
const (
	ColTitle = iota
	ColDates
	ColLocation
	ColContactName
	ColContactEmail
	ColURL
	ColLastUpdated

	// NumColumns is the width of a row including the timestamp.
	NumColumns
	// NumCompared is the number of leading columns compared during reconciliation.
	NumCompared = ColLastUpdated
)

// Header is the first row of every sheet.
var Header = []string{"Title", "Dates", "Location", "Contact Name", "Contact Email", "URL", "Last Updated"}

// TimestampLayout formats the Last Updated column.
const TimestampLayout = "2006-01-02 15:04:05"

// Client is a remote tabular store addressed with A1 ranges.
type Client interface {
	// EnsureSheet creates the named tab; an existing tab is not an error.
	EnsureSheet(ctx context.Context, name string) error
	// GetValues returns the rows in rng, starting at the range's first row.
	GetValues(ctx context.Context, rng string) ([][]string, error)
	// AppendValues writes rows after the last non-empty row of the table in rng.
	AppendValues(ctx context.Context, rng string, rows [][]string) error
	// UpdateValues overwrites the cells starting at the top-left of rng.
	UpdateValues(ctx context.Context, rng string, rows [][]string) error
}

// RecordRow projects a record onto the sheet columns.
func RecordRow(r models.Record, updated string) []string {
	row := make([]string, NumColumns)
	row[ColTitle] = r.Title
	row[ColDates] = r.JoinedDates()
	row[ColLocation] = r.Location
	row[ColContactName] = r.ContactName()
	row[ColContactEmail] = r.ContactEmail()
	row[ColURL] = r.URL
	row[ColLastUpdated] = updated

	return row
}

// cell returns row[i], or "" when the row is shorter.
func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}

	return ""
}

// sameContent compares the leading NumCompared columns of two rows.
func sameContent(a, b []string) bool {
	for i := 0; i < NumCompared; i++ {
		if cell(a, i) != cell(b, i) {
			return false
		}
	}

	return true
}
