package sheets

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gigsync/internal/logger"
	"gigsync/internal/models"
)

var tracer = otel.Tracer("gigsync/sheets")

// Result counts the reconciliation outcome per record.
type Result struct {
	Added     int
	Updated   int
	Unchanged int
}

// Reconciler applies the minimal writes that bring a sheet in line with the records.
type Reconciler struct {
	client Client
	log    *logger.Logger
	now    func() time.Time
}

// NewReconciler creates a reconciler writing through client.
func NewReconciler(client Client, log *logger.Logger) *Reconciler {
	return &Reconciler{
		client: client,
		log:    log.With("component", "reconciler"),
		now:    time.Now,
	}
}

// Reconcile classifies every record against the rows of sheetName by URL.
// Unknown records are appended in one batch, changed ones are rewritten in
// place, equal ones are left alone. The Last Updated column is written on
// every write and ignored when comparing. Records sharing a URL are paired
// with the rows sharing that URL in order of appearance.
func (r *Reconciler) Reconcile(ctx context.Context, records []models.Record, sheetName string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Reconcile")
	defer span.End()

	result := &Result{}

	if err := r.client.EnsureSheet(ctx, sheetName); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ensure sheet failed")

		return result, fmt.Errorf("failed to ensure sheet: %w", err)
	}

	rows, err := r.client.GetValues(ctx, ColumnsRange(sheetName, NumColumns))
	if err != nil {
		r.log.Warn("could not read sheet, treating it as empty", "sheet", sheetName, "err", err)

		rows = nil
	}

	if len(rows) == 0 {
		if err := r.client.UpdateValues(ctx, RowRange(sheetName, 1, NumColumns), [][]string{Header}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "header write failed")

			return result, fmt.Errorf("failed to write header: %w", err)
		}

		r.log.Info("wrote header row", "sheet", sheetName)

		rows = [][]string{Header}
	} else if !slices.Equal(rows[0], Header) {
		r.log.Warn("first row is not the expected header", "sheet", sheetName, "row", rows[0])
	}

	byURL := make(map[string][]int)
	for i := 1; i < len(rows); i++ {
		if url := cell(rows[i], ColURL); url != "" {
			byURL[url] = append(byURL[url], i)
		}
	}

	stamp := r.now().Format(TimestampLayout)
	used := make(map[string]int)

	var pending [][]string

	for _, rec := range records {
		row := RecordRow(rec, stamp)

		k := used[rec.URL]
		used[rec.URL]++

		matches := byURL[rec.URL]
		if k >= len(matches) {
			pending = append(pending, row)

			continue
		}

		i := matches[k]
		if sameContent(rows[i], row) {
			result.Unchanged++

			continue
		}

		// rows[0] is sheet row 1.
		if err := r.client.UpdateValues(ctx, RowRange(sheetName, i+1, NumColumns), [][]string{row}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "row update failed")

			return result, fmt.Errorf("failed to update row %d: %w", i+1, err)
		}

		r.log.Debug("updated row", "row", i+1, "url", rec.URL)
		result.Updated++
	}

	if len(pending) > 0 {
		if err := r.client.AppendValues(ctx, ColumnsRange(sheetName, NumColumns), pending); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "append failed")

			return result, fmt.Errorf("failed to append %d rows: %w", len(pending), err)
		}

		result.Added = len(pending)
	}

	span.SetAttributes(
		attribute.Int("added", result.Added),
		attribute.Int("updated", result.Updated),
		attribute.Int("unchanged", result.Unchanged),
	)

	r.log.Info("📊 Sheet reconciled", "sheet", sheetName, "added", result.Added, "updated", result.Updated, "unchanged", result.Unchanged)

	return result, nil
}
