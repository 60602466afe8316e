// Package server exposes the dashboard as a read-only HTTP JSON API.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"probedash/internal/api"
	"probedash/internal/chart"
	"probedash/internal/config"
	"probedash/internal/dashboard"
	"probedash/internal/model"
	"probedash/internal/store"
	"probedash/internal/trace"
)

const maxPageSize = 500

// Builder produces one dashboard per request.
type Builder interface {
	Build(ctx context.Context, now time.Time, host string) (*dashboard.Dashboard, error)
}

// Snapshot answers the table views.
type Snapshot interface {
	Hosts(ctx context.Context) ([]model.Target, error)
	Latest(ctx context.Context) ([]model.ProbeRecord, error)
	Page(ctx context.Context, f store.Filter, page, size int) (store.Page, error)
	DateRange(ctx context.Context) (from, to time.Time, ok bool, err error)
	LatestTraces(ctx context.Context) ([]model.TraceRun, error)
}

// Server provides the dashboard HTTP API.
type Server struct {
	cfg     config.Config
	loc     *time.Location
	builder Builder
	snap    Snapshot
	locator trace.Locator
	logger  logrus.FieldLogger
	metrics *collector
	now     func() time.Time
	engine  *gin.Engine
}

// New constructs a server. locator may be nil.
func New(cfg config.Config, builder Builder, snap Snapshot, locator trace.Locator, logger logrus.FieldLogger) (*Server, error) {
	if builder == nil || snap == nil {
		return nil, errors.New("server: builder and snapshot are required")
	}
	config.ApplyDefaults(&cfg)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		cfg:     cfg,
		loc:     loc,
		builder: builder,
		snap:    snap,
		locator: locator,
		logger:  logger,
		metrics: newCollector(),
		now:     time.Now,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe runs the HTTP server until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("listen", s.cfg.Listen).Info("dashboard listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("dashboard stopped")
	return nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID())
	router.Use(requestLogger(s.logger))
	router.Use(recovery(s.logger))
	router.Use(s.metrics.middleware())

	router.GET("/health", s.handleHealth)
	metricsHandler := promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})
	router.GET("/metrics", gin.WrapH(metricsHandler))

	apiGroup := router.Group("/api")
	apiGroup.GET("/dashboard", s.handleDashboard)
	apiGroup.GET("/hosts", s.handleHosts)
	apiGroup.GET("/latest", s.handleLatest)
	apiGroup.GET("/results", s.handleResults)
	apiGroup.GET("/traces", s.handleTraces)
	apiGroup.GET("/charts/:name", s.handleChart)
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok", Snapshot: s.cfg.SnapshotPath})
}

func (s *Server) handleDashboard(c *gin.Context) {
	d, ok := s.build(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleHosts(c *gin.Context) {
	hosts, err := s.snap.Hosts(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if hosts == nil {
		hosts = []model.Target{}
	}
	c.JSON(http.StatusOK, api.HostsResponse{Hosts: hosts})
}

func (s *Server) handleLatest(c *gin.Context) {
	records, err := s.snap.Latest(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	resp := api.LatestResponse{Rows: api.NewResultRows(records, s.cfg.ProbeCount)}
	for _, r := range records {
		if r.Timestamp.After(resp.LastUpdate) {
			resp.LastUpdate = r.Timestamp
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleResults(c *gin.Context) {
	q := api.ResultsQuery{
		From: c.Query("from"),
		To:   c.Query("to"),
		Host: c.Query("host"),
		Page: 1,
		Size: s.cfg.PageSize,
	}
	var err error
	if v := c.Query("page"); v != "" {
		if q.Page, err = strconv.Atoi(v); err != nil {
			writeJSONError(c, http.StatusBadRequest, "page must be a number")
			return
		}
	}
	if v := c.Query("size"); v != "" {
		if q.Size, err = strconv.Atoi(v); err != nil || q.Size <= 0 || q.Size > maxPageSize {
			writeJSONError(c, http.StatusBadRequest, "size must be between 1 and 500")
			return
		}
	}
	filter, err := q.Filter(s.loc)
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	page, err := s.snap.Page(ctx, filter, q.Page, q.Size)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	resp := api.ResultsResponse{
		Rows:  api.NewResultRows(page.Records, s.cfg.ProbeCount),
		Page:  page.Page,
		Size:  page.Size,
		Total: page.Total,
		Pages: page.Pages,
	}
	if from, to, ok, err := s.snap.DateRange(ctx); err == nil && ok {
		resp.MinDate = from.Format(api.DateLayout)
		resp.MaxDate = to.Format(api.DateLayout)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTraces(c *gin.Context) {
	runs, err := s.snap.LatestTraces(c.Request.Context())
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, api.TracesResponse{Traces: trace.Enrich(runs, s.locator, dashboard.PendingLocations...)})
}

func (s *Server) handleChart(c *gin.Context) {
	d, ok := s.build(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := chart.Render(&buf, c.Param("name"), d); err != nil {
		switch {
		case errors.Is(err, chart.ErrUnknownChart), errors.Is(err, chart.ErrNoData):
			writeJSONError(c, http.StatusNotFound, err.Error())
		default:
			s.fail(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) build(c *gin.Context) (*dashboard.Dashboard, bool) {
	start := time.Now()
	d, err := s.builder.Build(c.Request.Context(), s.now().In(s.loc), c.Query("host"))
	s.metrics.buildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.builds.WithLabelValues("error").Inc()
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNoSnapshot) {
			status = http.StatusServiceUnavailable
		}
		s.fail(c, status, err)
		return nil, false
	}
	s.metrics.builds.WithLabelValues("ok").Inc()
	s.metrics.records.Set(float64(d.Overview.TestCount))
	return d, true
}

func (s *Server) fail(c *gin.Context, status int, err error) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.Request.URL.Path,
	}).Error("request failed")
	writeJSONError(c, status, err.Error())
}

func writeJSONError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: message})
}
