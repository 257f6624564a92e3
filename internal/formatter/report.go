package formatter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gigsync/internal/models"
	"gigsync/pkg/metadata"
	"gigsync/pkg/utils"
)

// WriteReport renders records to path with a signed metadata block. The file
// is left untouched when its signed content already matches, so the
// timestamp only moves when the ledger did. It reports whether it wrote.
func WriteReport(path, title string, records []models.Record, now time.Time) (bool, error) {
	content := RenderLedger(title, records)

	previous, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read report: %w", err)
	}

	if err == nil && metadata.Unchanged(string(previous), content) {
		return false, nil
	}

	if err := utils.WriteFileAtomic(path, []byte(metadata.Sign(content, len(records), now))); err != nil {
		return false, fmt.Errorf("failed to write report: %w", err)
	}

	return true, nil
}
