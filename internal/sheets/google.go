package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"gigsync/internal/config"
	"gigsync/internal/logger"
)

// Ensure GoogleClient implements Client.
var _ Client = (*GoogleClient)(nil)

// GoogleClient talks to the Google Sheets v4 REST API with a bearer token.
type GoogleClient struct {
	http          *resty.Client
	logger        *logger.Logger
	spreadsheetID string
}

type valueRange struct {
	Range  string  `json:"range,omitempty"`
	Values [][]any `json:"values"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// NewGoogleClient creates a Sheets client from the sheets configuration.
func NewGoogleClient(cfg *config.SheetsConfig, log *logger.Logger) *GoogleClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.Endpoint, "/"))
	client.SetTimeout(cfg.Timeout())
	client.SetHeader("Content-Type", "application/json")

	if cfg.AccessToken != "" {
		client.SetAuthToken(cfg.AccessToken)
	}

	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		log.Debug("sheets api call", "method", res.Request.Method, "url", res.Request.URL, "status", res.StatusCode(), "duration", res.Time())

		return nil
	})

	return &GoogleClient{
		http:          client,
		logger:        log,
		spreadsheetID: cfg.SpreadsheetID,
	}
}

func (c *GoogleClient) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetPathParam("id", c.spreadsheetID).
		SetError(&apiError{})
}

func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if res.IsSuccess() {
		return nil
	}

	msg := res.String()
	if apiErr, ok := res.Error().(*apiError); ok && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, res.StatusCode(), msg)
}

// EnsureSheet adds a tab named name unless it already exists.
func (c *GoogleClient) EnsureSheet(ctx context.Context, name string) error {
	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": name},
				},
			},
		},
	}

	res, err := c.request(ctx).
		SetBody(body).
		Post("/v4/spreadsheets/{id}:batchUpdate")
	if err == nil && res.StatusCode() == http.StatusBadRequest && strings.Contains(res.String(), "already exists") {
		c.logger.Debug("sheet already exists", "sheet", name)

		return nil
	}

	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", name, err)
	}

	c.logger.Info("created sheet", "sheet", name)

	return nil
}

// GetValues reads the rendered values in rng.
func (c *GoogleClient) GetValues(ctx context.Context, rng string) ([][]string, error) {
	var out valueRange

	res, err := c.request(ctx).
		SetPathParam("range", rng).
		SetResult(&out).
		Get("/v4/spreadsheets/{id}/values/{range}")
	if err := checkResponse(res, err); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rng, err)
	}

	rows := make([][]string, len(out.Values))
	for i, values := range out.Values {
		rows[i] = make([]string, len(values))
		for j, v := range values {
			rows[i][j] = fmt.Sprint(v)
		}
	}

	return rows, nil
}

// AppendValues appends rows after the table in rng.
func (c *GoogleClient) AppendValues(ctx context.Context, rng string, rows [][]string) error {
	res, err := c.request(ctx).
		SetPathParam("range", rng).
		SetQueryParams(map[string]string{
			"valueInputOption": "RAW",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetBody(valueRange{Values: toValues(rows)}).
		Post("/v4/spreadsheets/{id}/values/{range}:append")
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("failed to append to %s: %w", rng, err)
	}

	return nil
}

// UpdateValues overwrites the cells in rng.
func (c *GoogleClient) UpdateValues(ctx context.Context, rng string, rows [][]string) error {
	res, err := c.request(ctx).
		SetPathParam("range", rng).
		SetQueryParam("valueInputOption", "RAW").
		SetBody(valueRange{Range: rng, Values: toValues(rows)}).
		Put("/v4/spreadsheets/{id}/values/{range}")
	if err := checkResponse(res, err); err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}

	return nil
}

func toValues(rows [][]string) [][]any {
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}

	return values
}
