package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"gigsync/internal/config"
	"gigsync/internal/logger"
	"gigsync/pkg/utils"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// Fetcher downloads pages with config-driven retry logic.
type Fetcher struct {
	client       *resty.Client
	retryPolicy  *config.RetryPolicy
	log          *logger.Logger
	bufferSizeKb int
}

// NewFetcher creates a fetcher from the fetch section of the configuration.
func NewFetcher(cfg *config.FetchConfig, log *logger.Logger) *Fetcher {
	policy := cfg.Retry

	f := &Fetcher{
		retryPolicy:  &policy,
		bufferSizeKb: cfg.BufferSizeKb,
		log:          log,
	}

	client := resty.New()
	client.SetTimeout(policy.GetTimeout())
	client.SetRetryCount(max(policy.MaxAttempts-1, 0))
	client.SetRetryWaitTime(time.Duration(policy.InitialDelayMs) * time.Millisecond)
	client.SetRetryMaxWaitTime(time.Duration(policy.MaxDelayMs) * time.Millisecond)
	client.SetRetryAfter(f.retryWait)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}

		return isRetryableStatus(res.StatusCode())
	})

	headers := utils.BuildHeaders(cfg.UserAgent, nil)
	for key := range headers {
		client.SetHeader(key, headers.Get(key))
	}

	client.OnError(func(req *resty.Request, err error) {
		log.Debug("fetch failed", "url", req.URL, "err", err)
	})

	f.client = client

	return f
}

// retryWait returns the exponential backoff before the attempt that follows res.
func (f *Fetcher) retryWait(_ *resty.Client, res *resty.Response) (time.Duration, error) {
	next := 2
	if res != nil && res.Request != nil {
		next = res.Request.Attempt + 1
	}

	return f.retryPolicy.GetRetryDelay(next), nil
}

// FetchWithMetrics returns (content, statusCode, duration, error).
func (f *Fetcher) FetchWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	startTime := time.Now()

	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	duration := time.Since(startTime)

	if err != nil {
		return "", 0, duration, fmt.Errorf("request failed after %d attempts: %w", f.retryPolicy.MaxAttempts, err)
	}

	if res.StatusCode() != http.StatusOK {
		return "", res.StatusCode(), duration, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, res.StatusCode())
	}

	body := res.Body()

	// bufferSizeKb is in KB, convert to bytes
	if limit := f.bufferSizeKb * 1024; limit > 0 && len(body) > limit {
		f.log.Warn("response body truncated", "url", url, "size", len(body), "limit", limit)
		body = truncateUTF8(body, limit)
	}

	f.log.Debug("fetched page", "url", url, "status", res.StatusCode(), "bytes", len(body), "duration", duration)

	return string(body), res.StatusCode(), duration, nil
}

// Fetch returns the body of the page at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	content, _, _, err := f.FetchWithMetrics(ctx, url)

	return content, err
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}

	return false
}

// truncateUTF8 cuts b to at most limit bytes without splitting a rune.
func truncateUTF8(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}

	return b[:cut]
}
