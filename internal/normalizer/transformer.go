package normalizer

import (
	"slices"

	"gigsync/internal/models"
	"gigsync/pkg/utils"
)

// Transformer builds records from one candidate's extraction.
type Transformer struct{}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Build groups events by location in first-seen order and emits one record per
// location. Dates within a record are unique and sorted by calendar value; ties
// keep their extraction order.
func (t *Transformer) Build(candidate models.Candidate, ext *models.Extraction) []models.Record {
	if ext == nil || len(ext.Events) == 0 {
		return nil
	}

	var locations []string

	dates := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, e := range ext.Events {
		if _, ok := seen[e.Location]; !ok {
			locations = append(locations, e.Location)
			seen[e.Location] = make(map[string]struct{})
		}

		if _, dup := seen[e.Location][e.Date]; dup {
			continue
		}

		seen[e.Location][e.Date] = struct{}{}
		dates[e.Location] = append(dates[e.Location], e.Date)
	}

	records := make([]models.Record, 0, len(locations))

	for _, location := range locations {
		group := dates[location]
		slices.SortStableFunc(group, utils.CompareEventDates)

		record := models.Record{
			Title:    candidate.Title,
			Dates:    group,
			Location: location,
			URL:      candidate.URL,
		}

		if ext.Contact != nil {
			contact := *ext.Contact
			record.Contact = &contact
		}

		records = append(records, record)
	}

	return records
}
