// Package statushttp serves the read-only run status API.
package statushttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"financeshub/internal/logger"
	"financeshub/internal/store/runlog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RunReader is the subset of the run ledger the API reads from.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]runlog.Run, error)
	LatestRun(ctx context.Context) (runlog.Run, bool, error)
	JobResults(ctx context.Context, runID string) ([]runlog.JobResult, error)
}

type ServerConfig struct {
	Addr string
	Runs RunReader
	// JobNames lists the currently configured jobs. Optional.
	JobNames func() []string
}

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Runs == nil {
		return nil, errors.New("status http server requires a run ledger")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h := &handlers{runs: cfg.Runs, jobNames: cfg.JobNames}
	api := router.Group("/api")
	api.GET("/runs", h.listRuns)
	api.GET("/runs/latest", h.latestRun)
	api.GET("/runs/:id/results", h.runResults)
	api.GET("/jobs", h.jobs)

	return &Server{addr: cfg.Addr, router: router}, nil
}

type handlers struct {
	runs     RunReader
	jobNames func() []string
}

func (h *handlers) listRuns(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}
	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("status api: list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *handlers) latestRun(c *gin.Context) {
	run, ok, err := h.runs.LatestRun(c.Request.Context())
	if err != nil {
		logger.Errorf("status api: latest run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) runResults(c *gin.Context) {
	results, err := h.runs.JobResults(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Errorf("status api: job results: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(results) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *handlers) jobs(c *gin.Context) {
	names := []string{}
	if h.jobNames != nil {
		if got := h.jobNames(); got != nil {
			names = got
		}
	}
	c.JSON(http.StatusOK, gin.H{"jobs": names})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
