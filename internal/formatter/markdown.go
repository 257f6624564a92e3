// Package formatter renders the ledger as a markdown report with aligned tables.
package formatter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"gigsync/internal/models"
)

// LedgerHeader is the column header of the rendered ledger table.
var LedgerHeader = []string{"Date", "Title", "Location", "All dates", "Contact", "URL"}

// RenderLedger renders records as a titled markdown table. Records are
// written in ledger order. Placeholder records are kept and marked.
func RenderLedger(title string, records []models.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)

	if len(records) == 0 {
		sb.WriteString("_No concerts recorded yet._")

		return sb.String()
	}

	rows := make([]string, 0, len(records)+2)
	rows = append(rows, markdownRow(LedgerHeader), markdownRow(slices.Repeat([]string{"---"}, len(LedgerHeader))))

	for _, r := range records {
		rows = append(rows, markdownRow(ledgerRow(r)))
	}

	sb.WriteString(AlignTables(strings.Join(rows, "\n")))

	placeholders := 0
	for _, r := range records {
		if r.IsPlaceholder() {
			placeholders++
		}
	}

	fmt.Fprintf(&sb, "\n\n%d records", len(records))

	if placeholders > 0 {
		fmt.Fprintf(&sb, ", %d without usable dates or venue", placeholders)
	}

	return sb.String()
}

func ledgerRow(r models.Record) []string {
	first := r.FirstDate()
	if r.IsPlaceholder() {
		first = "⚠️ " + first
	}

	contact := r.ContactName()
	if email := r.ContactEmail(); email != "" {
		contact = fmt.Sprintf("%s <%s>", contact, email)
	}

	return []string{
		escapeCell(first),
		escapeCell(r.Title),
		escapeCell(r.Location),
		escapeCell(r.JoinedDates()),
		escapeCell(contact),
		escapeCell(r.URL),
	}
}

func markdownRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

// escapeCell keeps a value on one line and inside its column.
func escapeCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")

	return strings.ReplaceAll(s, "|", `\|`)
}

// AlignTables rewrites every pipe table in content with padded, aligned columns.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var out []string

	var buffer []string

	flush := func() {
		if len(buffer) > 0 {
			out = append(out, alignTable(buffer)...)
			buffer = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			buffer = append(buffer, line)

			continue
		}

		flush()

		out = append(out, line)
	}

	flush()

	return strings.Join(out, "\n")
}

func alignTable(rows []string) []string {
	// A table needs a header and a separator.
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, splitRow(row))
	}

	sep := -1
	if isSeparator(table[1]) {
		sep = 1
	}

	return formatTable(table, sep)
}

// splitRow splits a pipe table row into trimmed cells, honouring \| escapes.
func splitRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")

	if strings.HasSuffix(row, "|") && !strings.HasSuffix(row, `\|`) {
		row = row[:len(row)-1]
	}

	var cells []string

	var cur strings.Builder

	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			cur.WriteString(`\|`)
			i++
		case row[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(row[i])
		}
	}

	return append(cells, strings.TrimSpace(cur.String()))
}

func isSeparator(cells []string) bool {
	for _, cell := range cells {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return true
}

// formatTable pads every cell to its column's display width. The row at
// index sep, if any, is redrawn as dashes.
func formatTable(table [][]string, sep int) []string {
	cols := 0
	for _, row := range table {
		cols = max(cols, len(row))
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}

	for r, row := range table {
		if r == sep {
			continue
		}

		for c, cell := range row {
			widths[c] = max(widths[c], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(table))

	for r, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for c := range cols {
			sb.WriteString(" ")

			if r == sep {
				sb.WriteString(strings.Repeat("-", widths[c]))
			} else {
				cell := ""
				if c < len(row) {
					cell = row[c]
				}

				sb.WriteString(runewidth.FillRight(cell, widths[c]))
			}

			sb.WriteString(" |")
		}

		lines = append(lines, sb.String())
	}

	return lines
}
