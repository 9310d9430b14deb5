// Package server exposes the claims service over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/claims-extractor/internal/batch"
	"github.com/joseph-ayodele/claims-extractor/internal/common"
	"github.com/joseph-ayodele/claims-extractor/internal/search"
	"github.com/joseph-ayodele/claims-extractor/internal/services/claims"
)

// ClaimsService is the business logic behind the HTTP routes.
type ClaimsService interface {
	LiveSearch(ctx context.Context, req claims.SearchRequest) (search.KeywordResponse, error)
	Lookup(ctx context.Context, q search.FieldQuery) ([]string, error)
	NeedsExtraction(ctx context.Context) (bool, error)
	RunBatch(ctx context.Context) (batch.Report, error)
}

type Config struct {
	Addr      string
	BodyLimit string // e.g. "64M"; inline documents travel in the body
}

// Server provides the HTTP endpoints.
type Server struct {
	echo   *echo.Echo
	svc    ClaimsService
	logger *zap.SugaredLogger
	cfg    Config

	searchSchema *jsonschema.Schema
	fieldSchema  *jsonschema.Schema
}

// ExtractionResponse is returned when a lookup request triggered a batch run.
type ExtractionResponse struct {
	Completed bool   `json:"Extraction_Completed"`
	Message   string `json:"message"`
	Summary   string `json:"Summary"`
}

// LookupResponse lists the documents answering a field query.
type LookupResponse struct {
	Files []string `json:"files"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func NewServer(svc ClaimsService, logger *zap.SugaredLogger, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("claims service cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "64M"
	}
	logger = common.OrNop(logger)

	searchSchema, err := compileSchema("search.json", searchRequestSchema)
	if err != nil {
		return nil, err
	}
	fieldSchema, err := compileSchema("fields.json", fieldQuerySchema)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), rid)))

			err := next(c)

			logger.Infow("http request",
				"method", req.Method,
				"uri", req.RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", rid,
			)
			return err
		}
	})

	s := &Server{
		echo:         e,
		svc:          svc,
		logger:       logger,
		cfg:          cfg,
		searchSchema: searchSchema,
		fieldSchema:  fieldSchema,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthcheck", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/searchPdfDocuments", s.handleLookup)
	s.echo.POST("/getDocumentwithOCRSearch", s.handleSearch)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleLookup runs a batch extraction when asked to (or when nothing was
// extracted yet), otherwise answers a field query from stored records.
func (s *Server) handleLookup(c echo.Context) error {
	ctx := c.Request().Context()

	extract := false
	if raw := c.QueryParam("extractDocuments"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return s.writeError(c, common.InvalidQueryf("extractDocuments must be a boolean"))
		}
		extract = v
	}
	if !extract {
		need, err := s.svc.NeedsExtraction(ctx)
		if err != nil {
			return s.writeError(c, err)
		}
		extract = need
	}
	if extract {
		return s.runExtraction(c)
	}

	body, err := readBody(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var q search.FieldQuery
	if err := decodeValidated(s.fieldSchema, body, &q); err != nil {
		return s.writeError(c, err)
	}
	files, err := s.svc.Lookup(ctx, q)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, LookupResponse{Files: files})
}

func (s *Server) runExtraction(c echo.Context) error {
	report, err := s.svc.RunBatch(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}

	msg := "Extraction completed"
	switch {
	case errors.Is(report.Err(), common.ErrNoFiles):
		msg = "No files to extract"
	case !report.Success:
		msg = "Extraction incomplete: " + report.Reason
	}
	return c.JSON(http.StatusOK, ExtractionResponse{
		Completed: report.Success,
		Message:   msg,
		Summary:   report.Summary(),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var req claims.SearchRequest
	if err := decodeValidated(s.searchSchema, body, &req); err != nil {
		return s.writeError(c, err)
	}
	resp, err := s.svc.LiveSearch(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, common.NewAppError("INVALID_INPUT", "read request body", common.ErrInvalidInput)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

// writeError maps a domain error onto its HTTP status. Only internal errors
// are logged at Error; the rest are expected outcomes.
func (s *Server) writeError(c echo.Context, err error) error {
	code := common.HTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}

	var noMatch *common.NoMatchError
	var appErr *common.AppError
	switch {
	case errors.As(err, &noMatch) && noMatch.Query != nil:
		resp.Error = fmt.Sprintf("No value matching with the keyword: '%s'", noMatch.Query.String())
	case errors.As(err, &appErr):
		resp.Error = appErr.Message
		resp.Code = appErr.Code
	}

	if code >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "uri", c.Request().RequestURI, "error", err,
			"request_id", common.RequestIDFromContext(c.Request().Context()))
		resp.Error = "internal error"
	}
	return c.JSON(code, resp)
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Infow("starting http server", "addr", s.cfg.Addr)
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("shutting down http server")
	return s.echo.Shutdown(ctx)
}
