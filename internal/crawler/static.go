package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gigsync/internal/config"
	"gigsync/pkg/utils"
)

// ErrNotOpened is returned when the listing is used before Open.
var ErrNotOpened = errors.New("listing not opened")

// controlURLAttrs are checked in order for the target of an expand control.
var controlURLAttrs = []string{"href", "data-href", "data-url"}

type listingPage struct {
	url *url.URL
	doc *goquery.Document
}

// StaticSource serves the listing from plain HTTP responses. An expand control
// is followed as a link to the next listing page, whose cards are added to the
// ones already loaded.
type StaticSource struct {
	fetcher *Fetcher
	cfg     *config.ListingConfig
	visited map[string]struct{}
	pages   []listingPage
}

// NewStaticSource creates a static source backed by fetcher.
func NewStaticSource(fetcher *Fetcher, cfg *config.ListingConfig) *StaticSource {
	return &StaticSource{
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// Open loads the listing root.
func (s *StaticSource) Open(ctx context.Context, rawURL string) error {
	s.pages = nil
	s.visited = make(map[string]struct{})

	return s.load(ctx, rawURL)
}

func (s *StaticSource) load(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid listing url %q: %w", rawURL, err)
	}

	body, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to load listing %s: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to parse listing %s: %w", rawURL, err)
	}

	s.pages = append(s.pages, listingPage{url: u, doc: doc})
	s.visited[u.String()] = struct{}{}

	return nil
}

// ClickControl follows the expand control on the most recently loaded page.
func (s *StaticSource) ClickControl(ctx context.Context, phrase string) (bool, error) {
	if len(s.pages) == 0 {
		return false, ErrNotOpened
	}

	last := s.pages[len(s.pages)-1]

	var target string

	last.doc.Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !MatchesControl(sel.Text(), phrase) {
			return true
		}

		for _, attr := range controlURLAttrs {
			if href := strings.TrimSpace(sel.AttrOr(attr, "")); href != "" {
				target = utils.ResolveURL(last.url, href)

				break
			}
		}

		return false
	})

	if target == "" {
		return false, nil
	}

	if _, seen := s.visited[target]; seen {
		return false, nil
	}

	if err := s.load(ctx, target); err != nil {
		return false, err
	}

	return true, nil
}

// WaitForNetworkSettle returns immediately: a static page has no pending requests.
func (s *StaticSource) WaitForNetworkSettle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Cards scans every loaded page with the configured selectors.
func (s *StaticSource) Cards(_ context.Context) ([]Card, error) {
	if len(s.pages) == 0 {
		return nil, ErrNotOpened
	}

	var cards []Card

	for _, page := range s.pages {
		page.doc.Find(s.cfg.CardSelector).Each(func(_ int, card *goquery.Selection) {
			link := card.Find(s.cfg.LinkSelector).First()
			if link.Length() == 0 && card.Is(s.cfg.LinkSelector) {
				link = card
			}

			href := strings.TrimSpace(link.AttrOr("href", ""))
			if resolved := utils.ResolveURL(page.url, href); resolved != "" {
				href = resolved
			}

			title := utils.NormalizeWhitespace(card.Find(s.cfg.TitleSelector).First().Text())
			if title == "" {
				title = utils.NormalizeWhitespace(link.Text())
			}

			cards = append(cards, Card{Href: href, Title: title})
		})
	}

	return cards, nil
}

// FetchText returns the HTML of a detail page.
func (s *StaticSource) FetchText(ctx context.Context, rawURL string) (string, error) {
	return s.fetcher.Fetch(ctx, rawURL)
}
