// Package crawler discovers concert detail pages on a paginated listing.
package crawler

import (
	"context"
	"strings"
	"time"
)

// Card is one listing entry as found in the page, before URL resolution.
type Card struct {
	Href  string
	Title string
}

// Source is the rendered-page capability the discoverer and the pipeline depend on.
// Implementations may drive a real browser or serve static HTML.
type Source interface {
	// Open loads the listing at url and resets any previously loaded state.
	Open(ctx context.Context, url string) error
	// ClickControl invokes the first control whose visible text matches phrase.
	// It reports false when no such control exists.
	ClickControl(ctx context.Context, phrase string) (bool, error)
	// WaitForNetworkSettle blocks until pending requests finish or timeout elapses.
	WaitForNetworkSettle(ctx context.Context, timeout time.Duration) error
	// Cards returns every listing card currently visible.
	Cards(ctx context.Context) ([]Card, error)
	// FetchText returns the rendered document of a detail page.
	FetchText(ctx context.Context, url string) (string, error)
}

// MatchesControl reports whether text is the expand control phrase,
// compared trimmed and case-insensitively.
func MatchesControl(text, phrase string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false
	}

	return strings.EqualFold(strings.Join(strings.Fields(text), " "), phrase)
}
