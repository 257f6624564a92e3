package sheets

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"gigsync/internal/logger"
)

//go:embed schema.sql
var schema string

// Ensure SQLiteClient implements Client.
var _ Client = (*SQLiteClient)(nil)

// SQLiteClient stores sheets as cells in a local SQLite database. It follows
// the same addressing rules as the Sheets API so it can stand in for it.
type SQLiteClient struct {
	db     *sql.DB
	logger *logger.Logger
}

// OpenSQLite opens (and initialises) the database at path. ":memory:" is accepted.
func OpenSQLite(path string, log *logger.Logger) (*SQLiteClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteClient{db: db, logger: log}, nil
}

// Close releases the database.
func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

// EnsureSheet registers the sheet name.
func (c *SQLiteClient) EnsureSheet(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheets (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}

	return nil
}

func (c *SQLiteClient) requireSheet(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, name string) error {
	var found string

	err := q.QueryRowContext(ctx, `SELECT name FROM sheets WHERE name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}

	return err
}

// GetValues returns the rows of rng from its first row up to the last row
// holding data. Rows are trimmed after their last non-empty cell.
func (c *SQLiteClient) GetValues(ctx context.Context, rng string) ([][]string, error) {
	r, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}

	if err := c.requireSheet(ctx, c.db, r.Sheet); err != nil {
		return nil, err
	}

	firstRow := max(r.StartRow, 1)
	lastRow := r.EndRow
	if lastRow == 0 {
		lastRow = int(^uint(0) >> 1)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT row_idx, col_idx, value FROM cells
		WHERE sheet = ? AND row_idx BETWEEN ? AND ? AND col_idx BETWEEN ? AND ? AND value <> ''
		ORDER BY row_idx, col_idx`,
		r.Sheet, firstRow, lastRow, r.StartCol, r.EndCol,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}
	defer rows.Close()

	var values [][]string

	for rows.Next() {
		var rowIdx, colIdx int

		var value string

		if err := rows.Scan(&rowIdx, &colIdx, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", rng, err)
		}

		for len(values) <= rowIdx-firstRow {
			values = append(values, []string{})
		}

		i := rowIdx - firstRow
		for len(values[i]) <= colIdx-r.StartCol {
			values[i] = append(values[i], "")
		}

		values[i][colIdx-r.StartCol] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}

	return values, nil
}

// AppendValues writes rows below the last row holding data in the sheet.
func (c *SQLiteClient) AppendValues(ctx context.Context, rng string, rows [][]string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return err
	}

	return c.inTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireSheet(ctx, tx, r.Sheet); err != nil {
			return err
		}

		var last int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(row_idx), 0) FROM cells WHERE sheet = ? AND value <> ''`, r.Sheet,
		).Scan(&last); err != nil {
			return fmt.Errorf("failed to find last row: %w", err)
		}

		return writeCells(ctx, tx, r.Sheet, last+1, r.StartCol, rows)
	})
}

// UpdateValues writes rows starting at the top-left cell of rng.
func (c *SQLiteClient) UpdateValues(ctx context.Context, rng string, rows [][]string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return err
	}

	return c.inTx(ctx, func(tx *sql.Tx) error {
		if err := c.requireSheet(ctx, tx, r.Sheet); err != nil {
			return err
		}

		return writeCells(ctx, tx, r.Sheet, max(r.StartRow, 1), r.StartCol, rows)
	})
}

func (c *SQLiteClient) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Warn("rollback failed", "err", rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

func writeCells(ctx context.Context, tx *sql.Tx, sheet string, startRow, startCol int, rows [][]string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (sheet, row_idx, col_idx, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (sheet, row_idx, col_idx) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return fmt.Errorf("failed to prepare write: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		for j, value := range row {
			if _, err := stmt.ExecContext(ctx, sheet, startRow+i, startCol+j, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", startRow+i, err)
			}
		}
	}

	return nil
}
