// Package api exposes the analysis service over HTTP as JSON, CSV, XLSX and
// rendered documents.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pairstat/adapters/export"
	"pairstat/adapters/tables"
	"pairstat/app"
	"pairstat/domain/core"
	"pairstat/domain/study"
	"pairstat/internal/errors"
	"pairstat/internal/logging"
)

// maxBodyBytes caps an analyze request body
const maxBodyBytes = 32 << 20

// Server routes HTTP requests to the analysis service
type Server struct {
	service *app.AnalysisService
	logger  *zap.Logger
	router  *chi.Mux
}

// NewServer builds the router
func NewServer(service *app.AnalysisService, logger *zap.Logger) *Server {
	s := &Server{
		service: service,
		logger:  logging.OrNop(logger),
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/aliases", s.handleAliases)
		r.Get("/reports", s.handleListReports)
		r.Route("/reports/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetReport)
			r.Get("/participants.csv", s.handleParticipantsCSV)
			r.Get("/summary.csv", s.handleSummaryCSV)
			r.Get("/report.xlsx", s.handleXLSX)
			r.Get("/report.md", s.handleMarkdown)
			r.Get("/report.html", s.handleHTML)
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts {"tables": {"trials": [...], ...}} and returns the report
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.InvalidInput("request body too large or unreadable"))
		return
	}

	set, skipped, err := tables.ReadJSONSet(body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	for name, reason := range skipped {
		s.logger.Warn("table skipped", zap.String("table", name), zap.String("reason", reason))
	}

	report, err := s.service.AnalyzeWithSkipped(r.Context(), set, skipped)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleAliases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Aliases())
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := s.service.Reports(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// loadReport resolves the {id} URL parameter, writing the error response itself
func (s *Server) loadReport(w http.ResponseWriter, r *http.Request) (*study.Report, bool) {
	id, err := core.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput(err.Error()))
		return nil, false
	}
	report, err := s.service.Report(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return report, true
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if report, ok := s.loadReport(w, r); ok {
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleParticipantsCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := export.WriteParticipantsCSV(w, report); err != nil {
		s.logger.Error("participants export failed", zap.Error(err))
	}
}

func (s *Server) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := export.WriteSummaryCSV(w, report); err != nil {
		s.logger.Error("summary export failed", zap.Error(err))
	}
}

func (s *Server) handleXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := s.loadReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.ID.String()+`.xlsx"`)
	if err := export.WriteXLSX(w, report); err != nil {
		s.logger.Error("workbook export failed", zap.Error(err))
	}
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	if report, ok := s.loadReport(w, r); ok {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write(export.Markdown(report))
	}
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	if report, ok := s.loadReport(w, r); ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(export.HTML(report))
	}
}

// writeError maps an error code onto an HTTP status
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := errors.GetCode(err)
	switch code {
	case errors.CodeInvalidInput, errors.CodeSchemaMismatch:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	case errors.CodeMissingData, errors.CodeInsufficient:
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
