// Package server exposes the pipeline over HTTP: a run trigger, a health
// probe and the prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gigsync/internal/logger"
	"gigsync/internal/models"
	"gigsync/internal/pipeline"
)

// Runner is the part of the pipeline the server triggers.
type Runner interface {
	TryRun(ctx context.Context) (*pipeline.Report, error)
	Sync(ctx context.Context) (*pipeline.Report, error)
}

// RecordLoader returns the current ledger.
type RecordLoader interface {
	Load() []models.Record
}

// Server handles the webhook routes.
type Server struct {
	runner  Runner
	records RecordLoader
	metrics http.Handler
	log     *logger.Logger
	started time.Time
}

// New creates a server. metrics may be nil, in which case /metrics is not routed.
func New(runner Runner, records RecordLoader, metrics http.Handler, log *logger.Logger) *Server {
	return &Server{
		runner:  runner,
		records: records,
		metrics: metrics,
		log:     log.With("component", "server"),
		started: time.Now(),
	}
}

// Router builds the gin engine serving every route.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())

	router.GET("/healthz", s.health)
	router.POST("/run", s.run)
	router.POST("/sync", s.sync)
	router.GET("/records", s.listRecords)

	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("🌐 Listening", "addr", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.log.Debug("request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

// run and sync outlive the request: a caller that hangs up does not abort
// a half-processed run.
func (s *Server) run(c *gin.Context) {
	report, err := s.runner.TryRun(context.WithoutCancel(c.Request.Context()))
	s.respond(c, report, err)
}

func (s *Server) sync(c *gin.Context) {
	report, err := s.runner.Sync(context.WithoutCancel(c.Request.Context()))
	s.respond(c, report, err)
}

func (s *Server) respond(c *gin.Context, report *pipeline.Report, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrSheetsDisabled):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	default:
		s.log.Error("triggered run failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
	}
}

func (s *Server) listRecords(c *gin.Context) {
	records := s.records.Load()
	if records == nil {
		records = []models.Record{}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}
