package models

import (
	"strings"
)

// Placeholder values substituted when extraction yields no usable events.
const (
	DateNotFound     = "Date not found"
	LocationNotFound = "Location not found"
)

// ExtractedEvent is a single (date, location) pair reported by the extraction step.
type ExtractedEvent struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

// PlaceholderEvent returns the sentinel event used when nothing valid was extracted.
func PlaceholderEvent() ExtractedEvent {
	return ExtractedEvent{Date: DateNotFound, Location: LocationNotFound}
}

// IsPlaceholder reports whether the event is the sentinel placeholder.
func (e ExtractedEvent) IsPlaceholder() bool {
	return e.Date == DateNotFound && e.Location == LocationNotFound
}

// Contact is a press or media contact.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Extraction is the validated result of one extraction request.
type Extraction struct {
	Contact *Contact         `json:"contact,omitempty"`
	Events  []ExtractedEvent `json:"events"`
}

// Record is the persisted unit: one concert at one venue with its dates.
type Record struct {
	Contact  *Contact `json:"contact,omitempty"`
	Title    string   `json:"title"`
	Location string   `json:"location"`
	URL      string   `json:"url"`
	Dates    []string `json:"dates"`
}

// FirstDate returns the earliest date of the record, or "" when it has none.
func (r Record) FirstDate() string {
	if len(r.Dates) == 0 {
		return ""
	}

	return r.Dates[0]
}

// JoinedDates renders the dates the way they are stored in tabular form.
func (r Record) JoinedDates() string {
	return strings.Join(r.Dates, ", ")
}

// ContactName returns the contact name or "".
func (r Record) ContactName() string {
	if r.Contact == nil {
		return ""
	}

	return r.Contact.Name
}

// ContactEmail returns the contact email or "".
func (r Record) ContactEmail() string {
	if r.Contact == nil {
		return ""
	}

	return r.Contact.Email
}

// IsPlaceholder reports whether the record was built from the sentinel event.
func (r Record) IsPlaceholder() bool {
	return r.Location == LocationNotFound || (len(r.Dates) == 1 && r.Dates[0] == DateNotFound)
}
