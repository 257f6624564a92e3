package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gigsync/internal/models"
	"gigsync/internal/notify"
	"gigsync/internal/pipeline"
	"gigsync/internal/sheets"
)

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer

	renderReport(&buf, &pipeline.Report{
		Discovered: 12,
		New:        3,
		Processed:  2,
		Failed:     1,
		Records:    40,
		Duration:   1500 * time.Millisecond,
		Sheet:      &sheets.Result{Added: 2, Updated: 1},
		Failures:   []notify.Failure{{URL: "https://venue.example/x", Title: "X", Err: "extraction failed"}},
	})

	out := strings.ToLower(buf.String())
	require.Contains(t, out, "run summary")
	require.Contains(t, out, "1.5s")
	require.Contains(t, out, "failed candidates")
	require.Contains(t, out, "https://venue.example/x")
}

func TestRenderReport_NoFailures(t *testing.T) {
	var buf bytes.Buffer

	renderReport(&buf, &pipeline.Report{})

	require.NotContains(t, strings.ToLower(buf.String()), "failed candidates")
}

func TestRenderCandidates(t *testing.T) {
	var buf bytes.Buffer

	renderCandidates(&buf, []models.Candidate{{URL: "https://venue.example/band", Title: "Band"}}, 7)

	out := buf.String()
	require.Contains(t, out, "https://venue.example/band")
	require.Contains(t, out, "1 / 7")
}
