package sheets

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ColumnLetter returns the A1 letters of a 1-based column index.
func ColumnLetter(col int) string {
	var letters []byte

	for col > 0 {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}

	return string(letters)
}

// ColumnIndex returns the 1-based index of A1 column letters, or 0 when invalid.
func ColumnIndex(letters string) int {
	col := 0

	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0
		}

		col = col*26 + int(r-'A'+1)
	}

	return col
}

// quoteSheet quotes a sheet name for use in a range.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ColumnsRange addresses whole columns, e.g. 'Concerts'!A:G.
func ColumnsRange(sheet string, width int) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(sheet), ColumnLetter(width))
}

// RowRange addresses one row of width columns, e.g. 'Concerts'!A5:G5.
func RowRange(sheet string, row, width int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, ColumnLetter(width), row)
}

// Range is a parsed A1 range. Rows are 0 when the range spans whole columns.
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

var cellRef = regexp.MustCompile(`^([A-Za-z]+)(\d*)$`)

// ParseRange parses ranges of the form Sheet!A1:G5, 'My sheet'!A:G or Sheet!B3.
func ParseRange(rng string) (Range, error) {
	idx := strings.LastIndex(rng, "!")
	if idx <= 0 {
		return Range{}, fmt.Errorf("%w: %q has no sheet", ErrInvalidRange, rng)
	}

	sheet := rng[:idx]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}

	cells := strings.SplitN(rng[idx+1:], ":", 2)

	start, err := parseCell(cells[0])
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, rng, err)
	}

	end := start
	if len(cells) == 2 {
		if end, err = parseCell(cells[1]); err != nil {
			return Range{}, fmt.Errorf("%w: %q: %w", ErrInvalidRange, rng, err)
		}
	}

	return Range{
		Sheet:    sheet,
		StartCol: start[0],
		StartRow: start[1],
		EndCol:   end[0],
		EndRow:   end[1],
	}, nil
}

func parseCell(ref string) ([2]int, error) {
	m := cellRef.FindStringSubmatch(ref)
	if m == nil {
		return [2]int{}, fmt.Errorf("bad cell %q", ref)
	}

	row := 0
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			return [2]int{}, fmt.Errorf("bad row in %q", ref)
		}

		row = n
	}

	return [2]int{ColumnIndex(m[1]), row}, nil
}
