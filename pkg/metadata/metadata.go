// Package metadata stamps rendered reports with a content hash so unchanged
// reports can be detected and edits can be spotted.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart opens the metadata block.
	TagStart = "<!-- REPORT_META_START"
	// TagEnd closes the metadata block.
	TagEnd = "REPORT_META_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata is the parsed block.
type Metadata struct {
	Generated time.Time
	Hash      string
	Records   int
}

var metadataRegex = regexp.MustCompile(`(?s)\n*<!--\s*REPORT_META_START\s*\n(.*?)\n\s*REPORT_META_END\s*-->\n*`)

// Extract splits content into its metadata block (nil when absent) and the
// remaining content, which is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	clean := strings.TrimRight(metadataRegex.ReplaceAllString(content, ""), "\n")

	if len(match) < 2 {
		return nil, clean
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "GENERATED":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.Generated = t
			}
		case "RECORDS":
			if n, err := strconv.Atoi(val); err == nil {
				meta.Records = n
			}
		case "HASH":
			meta.Hash = val
		}
	}

	return meta, clean
}

// CalculateHash returns the SHA-256 of content without its metadata block.
func CalculateHash(content string) string {
	_, clean := Extract(content)
	sum := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(sum[:])
}

// Sign replaces any metadata block in content with a fresh one.
func Sign(content string, records int, generated time.Time) string {
	_, clean := Extract(content)

	return fmt.Sprintf("%s\n\n%s\nGENERATED: %s\nRECORDS: %d\nHASH: %s\n%s\n",
		clean, TagStart, generated.UTC().Format(time.RFC3339), records, CalculateHash(clean), TagEnd)
}

// Verify checks that content still matches the hash in its block.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	if calculated := CalculateHash(clean); calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}

// Unchanged reports whether previous, a signed report, carries the same
// content as the unsigned content.
func Unchanged(previous, content string) bool {
	meta, _ := Extract(previous)
	if meta == nil {
		return false
	}

	return meta.Hash == CalculateHash(content)
}
