package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/core"
	"aihealth.app/health-assistant/internal/store"
)

const ServiceName = "ai-health-backend"

type Assistant interface {
	Ask(ctx context.Context, question string) (*core.AskResult, error)
	Feedback(ctx context.Context, eventID string, thumbsUp bool) error
}

type Exporter interface {
	List(ctx context.Context, resource store.Resource, q store.PageQuery) (*core.Page, error)
}

type Ingester interface {
	IngestDaily(ctx context.Context) (int, error)
}

type Analytics interface {
	Snapshot(ctx context.Context) (*core.Snapshot, error)
}

type APIHandler struct {
	assistant Assistant
	exporter  Exporter
	ingester  Ingester
	analytics Analytics
	etlBearer string
	logger    *zap.Logger
	now       func() time.Time
}

func NewAPIHandler(a Assistant, e Exporter, i Ingester, an Analytics, etlBearer string, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		assistant: a,
		exporter:  e,
		ingester:  i,
		analytics: an,
		etlBearer: etlBearer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *APIHandler) logError(r *http.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BannerResponse{OK: true, Name: ServiceName})
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found", Path: r.URL.Path})
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing question")
		return
	}
	question, ok := req.Question.(string)
	if !ok || question == "" {
		writeError(w, http.StatusBadRequest, "Missing question")
		return
	}

	result, err := h.assistant.Ask(r.Context(), question)
	if err != nil {
		if errors.Is(err, core.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, "Missing question")
			return
		}
		h.logError(r, "Ask failed", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" || req.ThumbsUp == nil {
		writeError(w, http.StatusBadRequest, "event_id and thumbs_up are required")
		return
	}

	if err := h.assistant.Feedback(r.Context(), req.EventID, *req.ThumbsUp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logError(r, "Feedback failed", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

func (h *APIHandler) ETLHealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ETLHealthResponse{
		Status:    "healthy",
		Timestamp: h.now(),
		Service:   ServiceName,
	})
}

// ExportHandler serves GET /etl/{resource}. The body is always a JSON array;
// X-Next-Page carries the following page number when this one is full.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	res, err := store.ParseResource(chi.URLParam(r, "resource"))
	if err != nil {
		h.NotFoundHandler(w, r)
		return
	}
	q, err := parsePageQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.exporter.List(r.Context(), res, q)
	if err != nil {
		h.logError(r, "Export failed", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if page.NextPage != nil {
		w.Header().Set("X-Next-Page", strconv.Itoa(*page.NextPage))
	}
	writeJSON(w, http.StatusOK, page.Rows)
}

func (h *APIHandler) IngestDailyHandler(w http.ResponseWriter, r *http.Request) {
	added, err := h.ingester.IngestDaily(r.Context())
	if err != nil {
		h.logError(r, "Daily ingest failed", err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{OK: true, Added: added})
}

func (h *APIHandler) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.analytics.Snapshot(r.Context())
	if err != nil {
		h.logError(r, "Analytics snapshot failed", err)
		writeError(w, http.StatusInternalServerError, "analytics query failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, core.SearchLinks(q))
}

// parsePageQuery reads page, limit and since. Non-numeric page or limit
// fall back to the defaults; a since that is neither RFC 3339 nor
// YYYY-MM-DD is an error.
func parsePageQuery(r *http.Request) (store.PageQuery, error) {
	v := r.URL.Query()
	q := store.PageQuery{
		Page:  intParam(v.Get("page"), store.DefaultPage),
		Limit: intParam(v.Get("limit"), store.DefaultLimit),
	}
	if s := v.Get("since"); s != "" {
		t, err := ParseSince(s)
		if err != nil {
			return q, err
		}
		q.Since = &t
	}
	return q.Normalize(), nil
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func ParseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid since %q: use RFC 3339 or YYYY-MM-DD", s)
}
