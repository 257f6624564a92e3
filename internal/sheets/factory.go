package sheets

import (
	"errors"
	"fmt"

	"gigsync/internal/config"
	"gigsync/internal/logger"
)

// ErrBackendDisabled is returned by NewClient for the "none" backend.
var ErrBackendDisabled = errors.New("sheets backend disabled")

// NewClient builds the client for the configured backend. The returned close
// function releases backend resources and is never nil.
func NewClient(cfg *config.SheetsConfig, log *logger.Logger) (Client, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendGoogle:
		return NewGoogleClient(cfg, log), noop, nil
	case config.BackendSQLite:
		client, err := OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, noop, err
		}

		return client, client.Close, nil
	case config.BackendNone, "":
		return nil, noop, ErrBackendDisabled
	}

	return nil, noop, fmt.Errorf("%w: %q", config.ErrInvalidSheetsBackend, cfg.Backend)
}
