// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-contrib-crawler/internal/store"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	errCodeBadParameters = "00001"
	errCodeInternal      = "00002"
)

var (
	errPageOutOfRange     = errors.New("page should be greater than or equal to 1")
	errPageSizeOutOfRange = errors.New("page_size should be between 1 and 100")
)

// Store is the read-only slice of the persistence layer the API serves from.
type Store interface {
	ListFirstContributions(ctx context.Context, page, pageSize int) (store.FirstContributionPage, error)
	ListNewContributorCounts(ctx context.Context, page, pageSize int) (store.NewContributorPage, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(st Store, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:  st,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/first-contributions", h.getFirstContributions)
		r.Get("/repos/new-contributors", h.getNewContributorCounts)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type firstContributionItem struct {
	RepoOwner    string `json:"repo_owner"`
	Contributor  string `json:"contributor"`
	RepoName     string `json:"repo_name"`
	Month        string `json:"month"`
	TotalCommits int    `json:"total_commits"`
}

// getFirstContributions lists the persisted first-contribution records.
// GET /v1/first-contributions?page=N&page_size=M
func (h *Handler) getFirstContributions(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, errCodeBadParameters, err.Error())
		return
	}

	result, err := h.store.ListFirstContributions(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list first contributions", "error", err)
		respondWithError(w, http.StatusInternalServerError, errCodeInternal, "Upsss! Something went wrong!")
		return
	}

	items := make([]firstContributionItem, 0, len(result.Items))
	for _, rec := range result.Items {
		items = append(items, firstContributionItem{
			RepoOwner:    rec.RepoOwner,
			Contributor:  rec.Contributor,
			RepoName:     rec.RepoName,
			Month:        rec.Month.Format("2006-01-02"),
			TotalCommits: rec.TotalCommits,
		})
	}
	respondWithJSON(w, http.StatusOK, pagedResponse{
		TotalRecords: result.TotalRecords,
		Page:         page,
		PageSize:     pageSize,
		Items:        items,
	})
}

type newContributorItem struct {
	RepoName        string `json:"repo_name"`
	Month           string `json:"month"`
	NewContributors int64  `json:"number_of_new_contributors"`
}

// getNewContributorCounts lists per-repository monthly aggregates.
// GET /v1/repos/new-contributors?page=N&page_size=M
func (h *Handler) getNewContributorCounts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, errCodeBadParameters, err.Error())
		return
	}

	result, err := h.store.ListNewContributorCounts(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list new contributor counts", "error", err)
		respondWithError(w, http.StatusInternalServerError, errCodeInternal, "Upsss! Something went wrong!")
		return
	}

	items := make([]newContributorItem, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, newContributorItem{
			RepoName:        c.RepoName,
			Month:           c.Month.Format("2006-01-02"),
			NewContributors: c.NewContributors,
		})
	}
	respondWithJSON(w, http.StatusOK, pagedResponse{
		TotalRecords: result.TotalRecords,
		Page:         page,
		PageSize:     pageSize,
		Items:        items,
	})
}

type pagedResponse struct {
	TotalRecords int64 `json:"total_records"`
	Page         int   `json:"page"`
	PageSize     int   `json:"page_size"`
	Items        any   `json:"items"`
}

type errorResponse struct {
	ErrorCode   string `json:"error_code"`
	Description string `json:"description"`
}

// parsePagination validates the page and page_size query parameters.
// Missing or non-numeric values fall back to the defaults; numeric values
// outside the allowed ranges are rejected.
func parsePagination(r *http.Request) (page, pageSize int, err error) {
	page = defaultPage
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, parseErr := strconv.Atoi(raw); parseErr == nil {
			if v < 1 {
				return 0, 0, errPageOutOfRange
			}
			page = v
		}
	}

	pageSize = defaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if v, parseErr := strconv.Atoi(raw); parseErr == nil {
			if v < 1 || v > maxPageSize {
				return 0, 0, errPageSizeOutOfRange
			}
			pageSize = v
		}
	}

	return page, pageSize, nil
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, description string) {
	respondWithJSON(w, status, errorResponse{ErrorCode: code, Description: description})
}
