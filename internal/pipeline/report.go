package pipeline

import (
	"time"

	"gigsync/internal/notify"
	"gigsync/internal/sheets"
)

// Report summarises one pipeline run.
type Report struct {
	Started    time.Time        `json:"started"`
	Sheet      *sheets.Result   `json:"sheet,omitempty"`
	Failures   []notify.Failure `json:"failures,omitempty"`
	Duration   time.Duration    `json:"duration"`
	Discovered int              `json:"discovered"`
	New        int              `json:"new"`
	Processed  int              `json:"processed"`
	Failed     int              `json:"failed"`
	Built      int              `json:"built"`
	Records    int              `json:"records"`
}

// Added returns the number of rows appended to the sheet.
func (r *Report) Added() int {
	if r.Sheet == nil {
		return 0
	}

	return r.Sheet.Added
}

// Updated returns the number of sheet rows rewritten.
func (r *Report) Updated() int {
	if r.Sheet == nil {
		return 0
	}

	return r.Sheet.Updated
}

func (r *Report) summary(finished time.Time) notify.Summary {
	return notify.Summary{
		Finished:  finished,
		Failures:  r.Failures,
		Processed: r.Processed,
		Added:     r.Added(),
		Updated:   r.Updated(),
	}
}
