package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/pkg/utils"
)

// Validation errors.
var (
	ErrInvalidDate     = errors.New("date does not match \"DD monthname YYYY\"")
	ErrInvalidLocation = errors.New("location is not \"Venue, City\"")
	ErrContactName     = errors.New("contact name is missing")
	ErrContactEmail    = errors.New("contact email is missing or has no @")
)

// Validator filters extraction output down to well-formed events and contact.
type Validator struct {
	log *logger.Logger
}

// NewValidator creates a new validator instance.
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{log: log.With("component", "validator")}
}

// ValidateEvent checks a single event.
func ValidateEvent(e models.ExtractedEvent) error {
	if _, ok := utils.ParseEventDate(e.Date); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, e.Date)
	}

	if !strings.Contains(e.Location, ",") {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, e.Location)
	}

	return nil
}

// ValidateContact checks a contact.
func ValidateContact(c models.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrContactName
	}

	if !strings.Contains(c.Email, "@") {
		return fmt.Errorf("%w: %q", ErrContactEmail, c.Email)
	}

	return nil
}

// Validate returns a copy of ext with invalid events and an invalid contact
// dropped, events deduplicated by (date, location), and the placeholder event
// substituted when nothing valid remains. The result always has at least one event.
func (v *Validator) Validate(ext *models.Extraction) *models.Extraction {
	out := &models.Extraction{}
	if ext == nil {
		out.Events = []models.ExtractedEvent{models.PlaceholderEvent()}

		return out
	}

	seen := make(map[models.ExtractedEvent]struct{}, len(ext.Events))
	placeholder := false

	for i, e := range ext.Events {
		e.Date = utils.NormalizeWhitespace(e.Date)
		e.Location = utils.NormalizeWhitespace(e.Location)

		if e.IsPlaceholder() {
			placeholder = true

			continue
		}

		if err := ValidateEvent(e); err != nil {
			v.log.Warn("dropping invalid event", "index", i, "err", err)

			continue
		}

		if _, dup := seen[e]; dup {
			continue
		}

		seen[e] = struct{}{}
		out.Events = append(out.Events, e)
	}

	if len(out.Events) == 0 {
		if !placeholder {
			v.log.Warn("no valid events extracted, using placeholder")
		}

		out.Events = []models.ExtractedEvent{models.PlaceholderEvent()}
	}

	if ext.Contact != nil {
		contact := models.Contact{
			Name:  strings.TrimSpace(ext.Contact.Name),
			Email: strings.TrimSpace(ext.Contact.Email),
		}

		if err := ValidateContact(contact); err != nil {
			v.log.Warn("dropping invalid contact", "err", err)
		} else {
			out.Contact = &contact
		}
	}

	return out
}
