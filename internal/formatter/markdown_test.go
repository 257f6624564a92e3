package formatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gigsync/internal/models"
	"gigsync/pkg/metadata"
)

func TestAlignTables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name: "Basic table formatting",
			input: `
| Header 1 | Header 2 |
| --- | --- |
| val 1 | val 2 |
`,
			expected: `
| Header 1 | Header 2 |
| -------- | -------- |
| val 1    | val 2    |
`,
		},
		{
			name: "Fix excessive dashes",
			input: `
| Col A | Col B |
| ---------------------- | ---------------------------------- |
| A | B |
`,
			expected: `
| Col A | Col B |
| ----- | ----- |
| A     | B     |
`,
		},
		{
			name: "Mixed content",
			input: `
# Concerts

| H1 | H2 |
| -- | -- |
| v1 | v2 |

Text after table.
`,
			expected: `
# Concerts

| H1  | H2  |
| --- | --- |
| v1  | v2  |

Text after table.
`,
		},
		{
			name: "Escaped pipes stay in their cell",
			input: `
| Title | Venue |
| --- | --- |
| A \| B | Ancienne Belgique |
`,
			expected: `
| Title  | Venue             |
| ------ | ----------------- |
| A \| B | Ancienne Belgique |
`,
		},
		{
			name: "Wide characters",
			input: `
| Date | Title |
| --- | --- |
| 24 juni 2025 | 坂本龍一 |
| 1 mei 2025 | Short |
`,
			expected: `
| Date         | Title    |
| ------------ | -------- |
| 24 juni 2025 | 坂本龍一 |
| 1 mei 2025   | Short    |
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlignTables(strings.TrimSpace(tt.input))

			if strings.TrimSpace(got) != strings.TrimSpace(tt.expected) {
				t.Errorf("AlignTables() = \n%v\nwant \n%v", got, tt.expected)
			}
		})
	}
}

func TestRenderLedger(t *testing.T) {
	records := []models.Record{
		{
			Title:    "Band",
			Location: "Vorst Nationaal, Brussel",
			URL:      "https://venue.example/band",
			Dates:    []string{"24 juni 2025", "25 juni 2025"},
			Contact:  &models.Contact{Name: "Jan", Email: "jan@venue.example"},
		},
		{
			Title:    "Duo | Trio",
			Location: "De Roma, Antwerpen",
			URL:      "https://venue.example/duo",
			Dates:    []string{"1 mei 2025"},
		},
	}

	got := RenderLedger("Concerts", records)

	expected := strings.Join([]string{
		"# Concerts",
		"",
		"| Date         | Title       | Location                 | All dates                  | Contact                 | URL                        |",
		"| ------------ | ----------- | ------------------------ | -------------------------- | ----------------------- | -------------------------- |",
		"| 24 juni 2025 | Band        | Vorst Nationaal, Brussel | 24 juni 2025, 25 juni 2025 | Jan <jan@venue.example> | https://venue.example/band |",
		"| 1 mei 2025   | Duo \\| Trio | De Roma, Antwerpen       | 1 mei 2025                 |                         | https://venue.example/duo  |",
		"",
		"2 records",
	}, "\n")

	if got != expected {
		t.Errorf("RenderLedger() = \n%v\nwant \n%v", got, expected)
	}
}

func TestRenderLedger_Placeholder(t *testing.T) {
	records := []models.Record{{
		Title:    "Mystery",
		Location: models.LocationNotFound,
		URL:      "https://venue.example/mystery",
		Dates:    []string{models.DateNotFound},
	}}

	got := RenderLedger("Concerts", records)

	if !strings.Contains(got, "1 records, 1 without usable dates or venue") {
		t.Errorf("RenderLedger() missing placeholder summary:\n%v", got)
	}

	if !strings.Contains(got, models.LocationNotFound) {
		t.Errorf("RenderLedger() dropped the placeholder record:\n%v", got)
	}
}

func TestRenderLedger_Empty(t *testing.T) {
	got := RenderLedger("Concerts", nil)

	if got != "# Concerts\n\n_No concerts recorded yet._" {
		t.Errorf("RenderLedger(nil) = %q", got)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "concerts.md")
	records := []models.Record{{Title: "Band", Location: "De Roma, Antwerpen", URL: "https://venue.example/band", Dates: []string{"1 mei 2025"}}}
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	written, err := WriteReport(path, "Concerts", records, now)
	if err != nil || !written {
		t.Fatalf("first WriteReport() = %v, %v", written, err)
	}

	first, _ := os.ReadFile(path)
	if ok, err := metadata.Verify(string(first)); !ok {
		t.Fatalf("written report does not verify: %v", err)
	}

	written, err = WriteReport(path, "Concerts", records, now.Add(time.Hour))
	if err != nil || written {
		t.Fatalf("unchanged WriteReport() = %v, %v", written, err)
	}

	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Error("unchanged report was rewritten")
	}

	records = append(records, models.Record{Title: "Duo", Location: "AB, Brussel", URL: "https://venue.example/duo", Dates: []string{"2 mei 2025"}})

	written, err = WriteReport(path, "Concerts", records, now.Add(time.Hour))
	if err != nil || !written {
		t.Fatalf("changed WriteReport() = %v, %v", written, err)
	}

	third, _ := os.ReadFile(path)
	meta, _ := metadata.Extract(string(third))

	if meta == nil || meta.Records != 2 || !meta.Generated.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected metadata %+v", meta)
	}
}
