package crawler

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gigsync/internal/config"
	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/pkg/utils"
)

var tracer = otel.Tracer("gigsync/crawler")

// Discoverer collects candidates from the listing.
type Discoverer struct {
	source Source
	cfg    *config.ListingConfig
	log    *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDiscoverer creates a discoverer driving source.
func NewDiscoverer(source Source, cfg *config.ListingConfig, log *logger.Logger) *Discoverer {
	return &Discoverer{
		source: source,
		cfg:    cfg,
		log:    log.With("component", "discoverer"),
		sleep:  utils.Sleep,
	}
}

// Discover loads rootURL, expands it at most maxExpansions times and returns
// every card with a resolvable absolute URL, in page order.
func (d *Discoverer) Discover(ctx context.Context, rootURL string, maxExpansions int) ([]models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Discover")
	defer span.End()

	base, err := url.Parse(rootURL)
	if err != nil {
		span.SetStatus(codes.Error, "invalid root url")

		return nil, fmt.Errorf("invalid root url %q: %w", rootURL, err)
	}

	if err := d.source.Open(ctx, rootURL); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open listing")

		return nil, fmt.Errorf("failed to open listing: %w", err)
	}

	expansions := d.expand(ctx, maxExpansions)
	span.SetAttributes(attribute.Int("expansions", expansions))

	cards, err := d.source.Cards(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cards")

		return nil, fmt.Errorf("failed to read listing cards: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(cards))

	for _, card := range cards {
		resolved := utils.ResolveURL(base, card.Href)
		if resolved == "" {
			d.log.Debug("dropping card without url", "title", card.Title, "href", card.Href)

			continue
		}

		candidates = append(candidates, models.Candidate{URL: resolved, Title: card.Title})
	}

	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	d.log.Info("🔎 Discovery finished", "expansions", expansions, "cards", len(cards), "candidates", len(candidates))

	return candidates, nil
}

// expand clicks the expand control until it disappears, fails, or the budget is spent.
func (d *Discoverer) expand(ctx context.Context, maxExpansions int) int {
	done := 0

	for done < maxExpansions {
		clicked, err := d.source.ClickControl(ctx, d.cfg.ExpandText)
		if err != nil {
			d.log.Warn("expansion failed, keeping loaded cards", "step", done+1, "err", err)

			return done
		}

		if !clicked {
			d.log.Debug("expand control not found", "step", done+1)

			return done
		}

		done++

		if err := d.source.WaitForNetworkSettle(ctx, d.cfg.SettleTimeout()); err != nil {
			d.log.Debug("network did not settle", "step", done, "err", err)
		}

		if err := d.sleep(ctx, d.cfg.ContentSettleDelay()); err != nil {
			d.log.Warn("expansion interrupted", "step", done, "err", err)

			return done
		}
	}

	return done
}

// FilterKnown drops candidates whose URL is in known or already seen earlier in
// candidates, preserving order.
func FilterKnown(candidates []models.Candidate, known map[string]struct{}) []models.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	fresh := make([]models.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if _, ok := known[c.URL]; ok {
			continue
		}

		if _, ok := seen[c.URL]; ok {
			continue
		}

		seen[c.URL] = struct{}{}
		fresh = append(fresh, c)
	}

	return fresh
}
