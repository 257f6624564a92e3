// Package validator audits the ledger for records that need a human look.
package validator

import (
	"fmt"
	"io"
	"slices"

	"gigsync/internal/models"
	"gigsync/internal/normalizer"
	"gigsync/pkg/metadata"
	"gigsync/pkg/utils"
)

// Issue kinds.
const (
	KindPlaceholder    = "placeholder"
	KindMissingTitle   = "missing_title"
	KindInvalidURL     = "invalid_url"
	KindInvalidDate    = "invalid_date"
	KindUnsorted       = "unsorted_dates"
	KindDuplicate      = "duplicate"
	KindInvalidContact = "invalid_contact"
)

// Issue is one finding about one record.
type Issue struct {
	Kind    string
	URL     string
	Field   string
	Value   string
	Message string
	Index   int
}

// AuditStats summarises an audit.
type AuditStats struct {
	TotalRecords   int
	ValidRecords   int
	InvalidRecords int
	Placeholders   int
}

// AuditResult holds the errors (malformed records) and warnings (records
// kept with placeholder values) of an audit.
type AuditResult struct {
	Errors   []Issue
	Warnings []Issue
	Stats    AuditStats
	IsValid  bool
}

// Audit checks every record. Placeholder records are warnings; anything the
// pipeline should never have persisted is an error.
func Audit(records []models.Record) *AuditResult {
	result := &AuditResult{IsValid: true}
	seen := make(map[[2]string]int)

	for i, r := range records {
		result.Stats.TotalRecords++

		if r.IsPlaceholder() {
			result.Stats.Placeholders++
			result.Warnings = append(result.Warnings, Issue{
				Kind:    KindPlaceholder,
				Index:   i,
				URL:     r.URL,
				Message: fmt.Sprintf("%q has no usable dates or venue", r.Title),
			})
		}

		errs := auditRecord(i, r)

		key := [2]string{r.URL, r.Location}
		if first, ok := seen[key]; ok {
			errs = append(errs, Issue{
				Kind:    KindDuplicate,
				Index:   i,
				URL:     r.URL,
				Field:   "location",
				Value:   r.Location,
				Message: fmt.Sprintf("same url and location as record %d", first+1),
			})
		} else {
			seen[key] = i
		}

		if len(errs) > 0 {
			result.IsValid = false
			result.Stats.InvalidRecords++
			result.Errors = append(result.Errors, errs...)
		} else {
			result.Stats.ValidRecords++
		}
	}

	return result
}

func auditRecord(i int, r models.Record) []Issue {
	var errs []Issue

	if r.Title == "" {
		errs = append(errs, Issue{Kind: KindMissingTitle, Index: i, URL: r.URL, Field: "title", Message: "title is empty"})
	}

	if !utils.IsValidURL(r.URL) {
		errs = append(errs, Issue{Kind: KindInvalidURL, Index: i, URL: r.URL, Field: "url", Value: r.URL, Message: "url is not absolute http(s)"})
	}

	if !r.IsPlaceholder() {
		for _, d := range r.Dates {
			if _, ok := utils.ParseEventDate(d); !ok {
				errs = append(errs, Issue{
					Kind:    KindInvalidDate,
					Index:   i,
					URL:     r.URL,
					Field:   "dates",
					Value:   d,
					Message: "date is not \"DD monthname YYYY\"",
				})
			}
		}

		if len(r.Dates) == 0 {
			errs = append(errs, Issue{Kind: KindInvalidDate, Index: i, URL: r.URL, Field: "dates", Message: "record has no dates"})
		} else if !slices.IsSortedFunc(r.Dates, utils.CompareEventDates) {
			errs = append(errs, Issue{Kind: KindUnsorted, Index: i, URL: r.URL, Field: "dates", Value: r.JoinedDates(), Message: "dates are not chronological"})
		}
	}

	if r.Contact != nil {
		if err := normalizer.ValidateContact(*r.Contact); err != nil {
			errs = append(errs, Issue{Kind: KindInvalidContact, Index: i, URL: r.URL, Field: "contact", Value: r.ContactEmail(), Message: err.Error()})
		}
	}

	return errs
}

// VerifyReport checks that a rendered report was not edited after signing.
func VerifyReport(content string) error {
	if _, err := metadata.Verify(content); err != nil {
		return fmt.Errorf("report integrity check failed: %w", err)
	}

	return nil
}

// String returns a one-line summary.
func (r *AuditResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Total: %d | Valid: %d | Invalid: %d | Placeholders: %d",
		status,
		r.Stats.TotalRecords,
		r.Stats.ValidRecords,
		r.Stats.InvalidRecords,
		r.Stats.Placeholders,
	)
}

// Print writes the errors and warnings in readable form.
func (r *AuditResult) Print(w io.Writer) {
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "❌ Audit Errors:")

		for _, issue := range r.Errors {
			printIssue(w, issue)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "⚠️  Audit Warnings:")

		for _, issue := range r.Warnings {
			printIssue(w, issue)
		}
	}
}

func printIssue(w io.Writer, issue Issue) {
	fmt.Fprintf(w, "  Record %d", issue.Index+1)

	if issue.Field != "" {
		fmt.Fprintf(w, " [%s]", issue.Field)
	}

	fmt.Fprintf(w, ": %s\n", issue.Message)

	if issue.URL != "" {
		fmt.Fprintf(w, "    URL: %s\n", issue.URL)
	}

	if issue.Value != "" {
		fmt.Fprintf(w, "    Found: %q\n", issue.Value)
	}
}
