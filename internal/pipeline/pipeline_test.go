package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"gigsync/internal/config"
	"gigsync/internal/crawler"
	"gigsync/internal/extractor"
	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/internal/sheets"
)

const rootURL = "https://venue.example/agenda"

var errPageGone = errors.New("page gone")

// fakeSource serves a fixed listing and a page per URL.
type fakeSource struct {
	pages map[string]string
	cards []crawler.Card
	mu    sync.Mutex
	opens int
}

func (f *fakeSource) Open(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opens++

	return nil
}

func (f *fakeSource) ClickControl(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (f *fakeSource) WaitForNetworkSettle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (f *fakeSource) Cards(_ context.Context) ([]crawler.Card, error) {
	return f.cards, nil
}

func (f *fakeSource) FetchText(_ context.Context, url string) (string, error) {
	page, ok := f.pages[url]
	if !ok {
		return "", errPageGone
	}

	return page, nil
}

// fakeChat answers with the completion registered for the first marker found in the prompt.
type fakeChat struct {
	answers map[string]string
	calls   int
}

func (f *fakeChat) Complete(_ context.Context, req extractor.ChatRequest) (string, error) {
	f.calls++

	user := req.Messages[len(req.Messages)-1].Content
	for marker, answer := range f.answers {
		if strings.Contains(user, marker) {
			return answer, nil
		}
	}

	return "", errors.New("no answer for prompt")
}

func page(title, body string) string {
	return "<html><body><h1>" + title + "</h1><div class=\"content\"><p>" + body + "</p></div></body></html>"
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Listing.RootURL = rootURL
	cfg.Listing.CandidateDelayMs = 0
	cfg.Listing.ContentSettleMs = 0
	cfg.Extraction.APIKey = "test-key"
	cfg.Extraction.MaxRetries = 1
	cfg.Ledger.Path = filepath.Join(dir, "concerts.json")
	cfg.Ledger.ErrorLog = filepath.Join(dir, "errors.log")

	return cfg
}

func bandSource() *fakeSource {
	return &fakeSource{
		cards: []crawler.Card{{Href: "/band", Title: "Band"}},
		pages: map[string]string{
			"https://venue.example/band": page("Band live in Brussel", "Band speelt op dinsdag in de grote zaal van Vorst Nationaal"),
		},
	}
}

func bandChat() *fakeChat {
	return &fakeChat{answers: map[string]string{
		"Band live": `{"events":[{"date":"24 juni 2025","location":"Vorst Nationaal, Brussel"}],"contact":{"name":"Jan Peeters","email":"jan@venue.example"}}`,
	}}
}

func openSheets(t *testing.T) *sheets.SQLiteClient {
	t.Helper()

	client, err := sheets.OpenSQLite(":memory:", logger.NewLogger("error"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	store := openSheets(t)

	p := New(cfg, Deps{Source: bandSource(), Chat: bandChat(), Sheets: store}, logger.NewLogger("error"))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Discovered)
	require.Equal(t, 1, report.New)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, 0, report.Failed)
	require.Equal(t, 1, report.Records)
	require.Equal(t, 1, report.Added())
	require.Equal(t, 0, report.Updated())

	want := []models.Record{{
		Title:    "Band",
		Location: "Vorst Nationaal, Brussel",
		URL:      "https://venue.example/band",
		Dates:    []string{"24 juni 2025"},
		Contact:  &models.Contact{Name: "Jan Peeters", Email: "jan@venue.example"},
	}}

	got, err := p.Store().Read()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ledger mismatch (-want +got):\n%s", diff)
	}

	rows, err := store.GetValues(context.Background(), sheets.ColumnsRange(cfg.Sheets.SheetName, sheets.NumColumns))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, sheets.Header, rows[0])
	require.Equal(t, []string{"Band", "24 juni 2025", "Vorst Nationaal, Brussel", "Jan Peeters", "jan@venue.example", "https://venue.example/band"}, rows[1][:sheets.NumCompared])
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	store := openSheets(t)
	chat := bandChat()

	p := New(cfg, Deps{Source: bandSource(), Chat: chat, Sheets: store}, logger.NewLogger("error"))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, chat.calls)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.New)
	require.Equal(t, 0, report.Added())
	require.Equal(t, 0, report.Updated())
	require.Equal(t, 1, report.Sheet.Unchanged)
	require.Equal(t, 1, chat.calls, "known candidates must not be extracted again")
}

func TestRun_FailedCandidateIsLoggedAndSkipped(t *testing.T) {
	cfg := testConfig(t)

	source := bandSource()
	source.cards = append(source.cards,
		crawler.Card{Href: "https://venue.example/missing", Title: "Missing"},
		crawler.Card{Href: "https://venue.example/noise", Title: "Noise"},
	)
	source.pages["https://venue.example/noise"] = page("Noise tour announced", "Details about this tour follow soon for all fans")

	p := New(cfg, Deps{Source: source, Chat: bandChat()}, logger.NewLogger("error"))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.New)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, 2, report.Failed)
	require.Len(t, report.Failures, 2)
	require.Equal(t, "https://venue.example/missing", report.Failures[0].URL)
	require.Equal(t, "https://venue.example/noise", report.Failures[1].URL)
	require.Nil(t, report.Sheet)

	data, err := os.ReadFile(cfg.Ledger.ErrorLog)
	require.NoError(t, err)
	require.Contains(t, string(data), "https://venue.example/missing (Missing)")
	require.Contains(t, string(data), "https://venue.example/noise (Noise)")

	records := p.Store().Load()
	require.Len(t, records, 1)
	require.Equal(t, "Band", records[0].Title)

	m := p.Metrics()
	require.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("success")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.candidates.WithLabelValues("failed")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.ledgerRecords), 0)
	// Band succeeds at once, Noise fails twice (one retry).
	require.InDelta(t, 1, testutil.ToFloat64(m.attempts.WithLabelValues("ok")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.attempts.WithLabelValues("error")), 0)
}

func TestRun_MissingCredentialAborts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.APIKey = ""

	chat := bandChat()
	p := New(cfg, Deps{Source: bandSource(), Chat: chat}, logger.NewLogger("error"))

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, extractor.ErrMissingCredential)
	require.Equal(t, 0, chat.calls)

	_, statErr := os.Stat(cfg.Ledger.Path)
	require.True(t, os.IsNotExist(statErr), "ledger must not be written on abort")
	require.InDelta(t, 1, testutil.ToFloat64(p.Metrics().runs.WithLabelValues("failure")), 0)
}

func TestRun_PlaceholderRecord(t *testing.T) {
	cfg := testConfig(t)

	chat := &fakeChat{answers: map[string]string{"Band live": `{"events":[{"date":"someday","location":"somewhere"}]}`}}
	p := New(cfg, Deps{Source: bandSource(), Chat: chat}, logger.NewLogger("error"))

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Processed)

	records := p.Store().Load()
	require.Len(t, records, 1)
	require.True(t, records[0].IsPlaceholder())
	require.Equal(t, []string{models.DateNotFound}, records[0].Dates)
}

func TestTryRun_RejectsConcurrentRun(t *testing.T) {
	p := New(testConfig(t), Deps{Source: bandSource(), Chat: bandChat()}, logger.NewLogger("error"))

	p.running.Lock()
	_, err := p.TryRun(context.Background())
	p.running.Unlock()

	require.ErrorIs(t, err, ErrRunInProgress)

	_, err = p.TryRun(context.Background())
	require.NoError(t, err)
}

func TestSync(t *testing.T) {
	cfg := testConfig(t)

	p := New(cfg, Deps{Source: bandSource(), Chat: bandChat()}, logger.NewLogger("error"))
	_, err := p.Sync(context.Background())
	require.ErrorIs(t, err, ErrSheetsDisabled)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	store := openSheets(t)
	p = New(cfg, Deps{Source: bandSource(), Chat: bandChat(), Sheets: store}, logger.NewLogger("error"))

	report, err := p.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Records)
	require.Equal(t, 1, report.Added())
}

func TestDiscoverNew(t *testing.T) {
	cfg := testConfig(t)
	source := bandSource()
	source.cards = append(source.cards, crawler.Card{Href: "/other", Title: "Other"})

	p := New(cfg, Deps{Source: source, Chat: bandChat()}, logger.NewLogger("error"))
	require.NoError(t, p.Store().Save([]models.Record{{Title: "Band", URL: "https://venue.example/band", Dates: []string{"24 juni 2025"}}}))

	fresh, total, err := p.DiscoverNew(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, []models.Candidate{{URL: "https://venue.example/other", Title: "Other"}}, fresh)
}
