package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"gigsync/internal/models"
	"gigsync/internal/pipeline"
	"gigsync/pkg/utils"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	return t
}

func renderReport(w io.Writer, report *pipeline.Report) {
	t := newTable(w)
	t.SetTitle("Run summary")
	t.AppendHeader(table.Row{"Discovered", "New", "Processed", "Failed", "Records", "Added", "Updated", "Duration"})
	t.AppendRow(table.Row{
		report.Discovered,
		report.New,
		report.Processed,
		report.Failed,
		report.Records,
		report.Added(),
		report.Updated(),
		report.Duration.Round(time.Millisecond),
	})
	t.Render()

	if len(report.Failures) == 0 {
		return
	}

	f := newTable(w)
	f.SetTitle("Failed candidates")
	f.AppendHeader(table.Row{"#", "Title", "URL", "Error"})

	for i, failure := range report.Failures {
		f.AppendRow(table.Row{i + 1, failure.Title, failure.URL, utils.TruncateString(failure.Err, 80)})
	}

	f.Render()
}

func renderCandidates(w io.Writer, candidates []models.Candidate, total int) {
	t := newTable(w)
	t.SetTitle("New candidates")
	t.AppendHeader(table.Row{"#", "Title", "URL"})

	for i, c := range candidates {
		t.AppendRow(table.Row{i + 1, c.Title, c.URL})
	}

	t.AppendFooter(table.Row{"", "New / listed", fmt.Sprintf("%d / %d", len(candidates), total)})
	t.Render()
}
