// Package handlers exposes the admin API over the query registry and the
// delivery log.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/querykit/report-delivery/internal/service"
	"github.com/querykit/report-delivery/internal/store/model"
)

type Handler struct {
	queryService    *service.QueryService
	queryLogService *service.QueryLogService
}

func New(queryService *service.QueryService, queryLogService *service.QueryLogService) *Handler {
	return &Handler{
		queryService:    queryService,
		queryLogService: queryLogService,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/queries", h.listQueries)
	r.Post("/queries", h.createQuery)
	r.Get("/queries/{id}", h.getQuery)
	r.Put("/queries/{id}", h.updateQuery)
	r.Delete("/queries/{id}", h.deleteQuery)
	r.Get("/queries/{id}/parameters", h.getQueryParameters)
	r.Post("/queries/{id}/preview", h.previewQuery)
	r.Get("/logs", h.listLogs)
	r.Get("/logs/{id}", h.getLog)
	r.Get("/logs/stats", h.getLogStats)
	return r
}

func (h *Handler) listQueries(w http.ResponseWriter, r *http.Request) {
	filter := &service.QueryFilter{
		Department: r.URL.Query().Get("department"),
		Name:       r.URL.Query().Get("name"),
		Page:       intParam(r, "page"),
		PerPage:    intParam(r, "per_page"),
	}

	queries, err := h.queryService.ListQueries(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queries)
}

func (h *Handler) getQuery(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	query, err := h.queryService.GetQuery(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, query)
}

func (h *Handler) getQueryParameters(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params, err := h.queryService.DeclaredParameters(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if params == nil {
		params = map[string]string{}
	}
	writeJSON(w, http.StatusOK, params)
}

func (h *Handler) createQuery(w http.ResponseWriter, r *http.Request) {
	var query model.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.queryService.CreateQuery(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateQuery(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var query model.Query
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	query.ID = id

	updated, err := h.queryService.UpdateQuery(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteQuery(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.queryService.DeleteQuery(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewRequest struct {
	QueryParams map[string]any `json:"query_params"`
	Page        int            `json:"page"`
	PerPage     int            `json:"per_page"`
}

func (h *Handler) previewQuery(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := previewRequest{Page: 1, PerPage: 50}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rs, err := h.queryService.Preview(r.Context(), id, req.QueryParams, req.Page, req.PerPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request) {
	filter := &service.QueryLogFilter{
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
		Page:       intParam(r, "page"),
		PerPage:    intParam(r, "per_page"),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}
		filter.UserID = userID
	}
	if v := r.URL.Query().Get("query_id"); v != "" {
		queryID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid query_id", http.StatusBadRequest)
			return
		}
		filter.QueryID = uint(queryID)
	}
	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
		filter.From = from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
		filter.To = to
	}

	logs, err := h.queryLogService.ListLogs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log, err := h.queryLogService.GetLog(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, log)
}

func (h *Handler) getLogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queryLogService.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func idParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func intParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	var notFound *service.ErrResourceNotFound
	var invalid *service.ErrInvalidRequest

	switch {
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
