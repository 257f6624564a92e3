package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gigsync/internal/config"
	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/internal/normalizer"
)

var tracer = otel.Tracer("gigsync/extractor")

// Extraction errors.
var (
	// ErrMissingCredential means no model credential is configured. It is never retried.
	ErrMissingCredential = errors.New("language model credential is not configured")
	// ErrTransient covers transport failures and unusable model output; these are retried.
	ErrTransient = errors.New("transient extraction failure")
	// ErrExtractionFailed is matched by every ExtractionError.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrEventsNotArray means the response has no "events" sequence.
	ErrEventsNotArray = errors.New(`"events" is not an array`)
)

// ExtractionError is returned once all attempts for one text are spent.
type ExtractionError struct {
	Err      error
	Attempts int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap exposes both ErrExtractionFailed and the last attempt's error.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtractionFailed, e.Err}
}

// AttemptHook observes every request attempt and its outcome.
type AttemptHook func(attempt int, err error)

// Engine requests structured events for a text and validates them.
type Engine struct {
	client        ChatClient
	cfg           *config.ExtractionConfig
	validator     *normalizer.Validator
	canonicalizer *Canonicalizer
	log           *logger.Logger
	onAttempt     AttemptHook
}

// NewEngine creates an extraction engine using client.
func NewEngine(cfg *config.ExtractionConfig, client ChatClient, log *logger.Logger) *Engine {
	return &Engine{
		client:        client,
		cfg:           cfg,
		validator:     normalizer.NewValidator(log),
		canonicalizer: NewCanonicalizer(cfg.CanonicalCities, cfg.CityAliases),
		log:           log.With("component", "extractor"),
	}
}

// OnAttempt registers a hook called after each request attempt.
func (e *Engine) OnAttempt(hook AttemptHook) {
	e.onAttempt = hook
}

// Extract returns the validated events and contact found in text. The result
// always holds at least one event; the placeholder event stands for "nothing
// usable". Unusable output and transport failures are retried immediately up
// to MaxRetries times before an *ExtractionError is returned.
func (e *Engine) Extract(ctx context.Context, text string) (*models.Extraction, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: set %s or extraction.api_key", ErrMissingCredential, config.EnvOpenAIKey)
	}

	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()

	attempts := 1 + max(e.cfg.MaxRetries, 0)

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := e.attempt(ctx, text)

		if e.onAttempt != nil {
			e.onAttempt(attempt, err)
		}

		if err == nil {
			e.canonicalizer.Apply(raw)
			result := e.validator.Validate(raw)

			span.SetAttributes(
				attribute.Int("attempts", attempt),
				attribute.Int("events", len(result.Events)),
			)

			return result, nil
		}

		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, "cancelled")

			return nil, fmt.Errorf("extraction cancelled: %w", ctxErr)
		}

		if attempt < attempts {
			e.log.Warn("extraction attempt failed, retrying", "attempt", attempt, "max_attempts", attempts, "err", err)
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "retries exhausted")

	return nil, &ExtractionError{Attempts: attempts, Err: lastErr}
}

func (e *Engine) attempt(ctx context.Context, text string) (*models.Extraction, error) {
	content, err := e.client.Complete(ctx, ChatRequest{
		Model:          e.cfg.Model,
		Messages:       BuildMessages(text, e.cfg.CanonicalCities),
		Temperature:    e.cfg.Temperature,
		ResponseFormat: extractionSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	ext, err := e.decode(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	return ext, nil
}

// decode parses the model output. Only the events sequence is structurally
// required; a malformed event or contact is dropped on its own.
func (e *Engine) decode(content string) (*models.Extraction, error) {
	var envelope struct {
		Events  json.RawMessage `json:"events"`
		Contact json.RawMessage `json:"contact"`
	}

	if err := json.Unmarshal([]byte(stripCodeFence(content)), &envelope); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	events := bytes.TrimSpace(envelope.Events)
	if len(events) == 0 || events[0] != '[' {
		return nil, ErrEventsNotArray
	}

	var items []json.RawMessage
	if err := json.Unmarshal(events, &items); err != nil {
		return nil, fmt.Errorf("malformed events: %w", err)
	}

	ext := &models.Extraction{Events: make([]models.ExtractedEvent, 0, len(items))}

	for i, item := range items {
		var ev models.ExtractedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			e.log.Warn("dropping invalid event", "index", i, "err", err)

			continue
		}

		ext.Events = append(ext.Events, ev)
	}

	contact := bytes.TrimSpace(envelope.Contact)
	if len(contact) > 0 && !bytes.Equal(contact, []byte("null")) {
		var c models.Contact
		if err := json.Unmarshal(contact, &c); err != nil {
			e.log.Warn("dropping malformed contact", "err", err)
		} else {
			ext.Contact = &c
		}
	}

	return ext, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}

	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
