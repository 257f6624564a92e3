// Package pipeline runs discovery, extraction, ledger persistence and sheet
// reconciliation as one sequential job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gigsync/internal/config"
	"gigsync/internal/crawler"
	"gigsync/internal/extractor"
	"gigsync/internal/ledger"
	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/internal/normalizer"
	"gigsync/internal/notify"
	"gigsync/internal/sheets"
	"gigsync/pkg/utils"
)

var tracer = otel.Tracer("gigsync/pipeline")

// Pipeline errors.
var (
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrSheetsDisabled = errors.New("no sheets backend configured")
)

// Extractor turns page text into validated events.
type Extractor interface {
	Extract(ctx context.Context, text string) (*models.Extraction, error)
}

// Deps are the external collaborators of a pipeline. Sheets and Sender may be nil.
type Deps struct {
	Source  crawler.Source
	Chat    extractor.ChatClient
	Sheets  sheets.Client
	Sender  notify.Sender
	Metrics *Metrics
}

// Pipeline wires the components of one run. Runs are serialised.
type Pipeline struct {
	cfg        *config.Config
	source     crawler.Source
	discoverer *crawler.Discoverer
	content    *normalizer.ContentNormalizer
	extractor  Extractor
	processor  *normalizer.Processor
	store      *ledger.Store
	reconciler *sheets.Reconciler
	errorLog   *logger.ErrorLog
	notifier   *notify.Notifier
	metrics    *Metrics
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	running    sync.Mutex
}

// New builds a pipeline from cfg and deps.
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Pipeline {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	engine := extractor.NewEngine(&cfg.Extraction, deps.Chat, log)
	engine.OnAttempt(func(_ int, err error) { metrics.observeAttempt(err) })

	p := &Pipeline{
		cfg:        cfg,
		source:     deps.Source,
		discoverer: crawler.NewDiscoverer(deps.Source, &cfg.Listing, log),
		content:    normalizer.NewContentNormalizer(&cfg.Normalizer),
		extractor:  engine,
		processor:  normalizer.NewProcessor(log),
		store:      ledger.NewStore(cfg.Ledger.Path, log),
		errorLog:   logger.NewErrorLog(cfg.Ledger.ErrorLog, log),
		notifier:   notify.NewNotifier(&cfg.Notify, deps.Sender),
		metrics:    metrics,
		log:        log.With("component", "pipeline"),
		sleep:      utils.Sleep,
		now:        time.Now,
	}

	if deps.Sheets != nil {
		p.reconciler = sheets.NewReconciler(deps.Sheets, log)
	}

	return p
}

// Metrics returns the collectors updated by this pipeline.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Store returns the ledger store.
func (p *Pipeline) Store() *ledger.Store {
	return p.store
}

// Run executes one full run, waiting for a run in progress to finish first.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.running.Lock()
	defer p.running.Unlock()

	return p.run(ctx)
}

// TryRun executes one full run unless another is in progress, in which case
// it returns ErrRunInProgress.
func (p *Pipeline) TryRun(ctx context.Context) (*Report, error) {
	if !p.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.running.Unlock()

	return p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) (*Report, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	report := &Report{Started: p.now()}

	err := p.execute(ctx, report)

	finished := p.now()
	report.Duration = finished.Sub(report.Started)
	p.metrics.observeRun(report, err, finished)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		p.log.Error("❌ Run failed", "err", err, "processed", report.Processed, "failed", report.Failed)

		return report, err
	}

	span.SetAttributes(
		attribute.Int("new", report.New),
		attribute.Int("failed", report.Failed),
		attribute.Int("records", report.Records),
	)

	p.log.Info("✅ Run finished",
		"discovered", report.Discovered,
		"new", report.New,
		"processed", report.Processed,
		"failed", report.Failed,
		"records", report.Records,
		"added", report.Added(),
		"updated", report.Updated(),
		"duration", report.Duration,
	)

	if err := p.notifier.NotifyFailures(ctx, report.summary(finished)); err != nil {
		p.log.Warn("failed to send failure summary", "err", err)
	}

	return report, nil
}

func (p *Pipeline) execute(ctx context.Context, report *Report) error {
	existing := p.store.Load()

	fresh, discovered, err := p.discoverNew(ctx, existing)
	if err != nil {
		return err
	}

	report.Discovered = discovered
	report.New = len(fresh)

	if len(fresh) == 0 {
		p.log.Info("no new candidates")
	} else {
		p.log.Info("🚀 Processing new candidates", "count", len(fresh))
	}

	built, err := p.processAll(ctx, fresh, report)
	if err != nil {
		return err
	}

	report.Built = len(built)

	merged := ledger.Merge(existing, built)
	if err := p.store.Save(merged); err != nil {
		return err
	}

	report.Records = len(merged)

	return p.reconcile(ctx, merged, report)
}

func (p *Pipeline) discoverNew(ctx context.Context, existing []models.Record) ([]models.Candidate, int, error) {
	candidates, err := p.discoverer.Discover(ctx, p.cfg.Listing.RootURL, p.cfg.Listing.MaxExpansions)
	if err != nil {
		return nil, 0, fmt.Errorf("discovery failed: %w", err)
	}

	return crawler.FilterKnown(candidates, ledger.KnownURLs(existing)), len(candidates), nil
}

// processAll handles candidates one at a time with the configured pause in
// between. A failing candidate is logged and skipped; only a missing
// credential or cancellation stops the loop.
func (p *Pipeline) processAll(ctx context.Context, candidates []models.Candidate, report *Report) ([]models.Record, error) {
	var built []models.Record

	for i, candidate := range candidates {
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.Listing.CandidateDelay()); err != nil {
				return nil, fmt.Errorf("run interrupted: %w", err)
			}
		}

		records, err := p.processOne(ctx, candidate)
		if err != nil {
			if errors.Is(err, extractor.ErrMissingCredential) {
				return nil, err
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("run interrupted: %w", ctxErr)
			}

			report.Failed++
			report.Failures = append(report.Failures, notify.Failure{URL: candidate.URL, Title: candidate.Title, Err: err.Error()})

			p.log.Error("❌ Candidate failed", "progress", fmt.Sprintf("%d/%d", i+1, len(candidates)), "url", candidate.URL, "err", err)
			p.errorLog.Append(logger.ErrorEntry{Time: p.now(), URL: candidate.URL, Title: candidate.Title, Err: err})

			continue
		}

		report.Processed++
		built = append(built, records...)

		p.log.Info("✅ Candidate processed", "progress", fmt.Sprintf("%d/%d", i+1, len(candidates)), "title", candidate.Title, "records", len(records))
	}

	return built, nil
}

func (p *Pipeline) processOne(ctx context.Context, candidate models.Candidate) ([]models.Record, error) {
	ctx, span := tracer.Start(ctx, "ProcessCandidate", trace.WithAttributes(attribute.String("url", candidate.URL)))
	defer span.End()

	document, err := p.source.FetchText(ctx, candidate.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")

		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	text, err := p.content.Normalize(document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")

		return nil, err
	}

	ext, err := p.extractor.Extract(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")

		return nil, err
	}

	records := p.processor.Process(candidate, ext)
	for _, r := range records {
		if r.IsPlaceholder() {
			p.log.Warn("no usable events found, keeping placeholder record", "url", candidate.URL, "title", candidate.Title)

			break
		}
	}

	return records, nil
}

func (p *Pipeline) reconcile(ctx context.Context, records []models.Record, report *Report) error {
	if p.reconciler == nil {
		p.log.Debug("sheets backend disabled, skipping reconciliation")

		return nil
	}

	res, err := p.reconciler.Reconcile(ctx, records, p.cfg.Sheets.SheetName)
	report.Sheet = res
	p.metrics.observeSheet(res)

	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	return nil
}

// Sync reconciles the existing ledger with the sheet without scraping.
func (p *Pipeline) Sync(ctx context.Context) (*Report, error) {
	p.running.Lock()
	defer p.running.Unlock()

	if p.reconciler == nil {
		return nil, ErrSheetsDisabled
	}

	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	report := &Report{Started: p.now()}

	records := p.store.Load()
	report.Records = len(records)

	err := p.reconcile(ctx, records, report)
	report.Duration = p.now().Sub(report.Started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
	}

	return report, err
}

// DiscoverNew returns the listing candidates that are not in the ledger yet,
// together with the total number of candidates found.
func (p *Pipeline) DiscoverNew(ctx context.Context) ([]models.Candidate, int, error) {
	return p.discoverNew(ctx, p.store.Load())
}
