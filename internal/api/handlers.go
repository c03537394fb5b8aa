package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/exercise-engine/internal/grading"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/services"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 4 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondGradingError maps grading errors to HTTP statuses
func respondGradingError(w http.ResponseWriter, err error, slug string) {
	switch {
	case errors.Is(err, grading.ErrExerciseNotFound):
		respondError(w, http.StatusNotFound, "exercise_not_found", "exercise not found")
	case errors.Is(err, grading.ErrKindMismatch):
		respondError(w, http.StatusBadRequest, "kind_mismatch", err.Error())
	case errors.Is(err, grading.ErrSubmissionTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "submission_too_large", err.Error())
	default:
		slog.Error("failed to verify submission", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to verify submission")
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"time":      time.Now().UTC().Format(time.RFC3339),
		"exercises": s.grader.Catalog().Len(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.grader.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "attempt store unavailable")
		return
	}

	var deps []services.Status
	if s.registry != nil {
		deps = s.registry.Check(r.Context())
		for _, st := range deps {
			if !st.Healthy {
				slog.Warn("readiness check failed", "dependency", st.Name, "error", st.Error)
				respondError(w, http.StatusServiceUnavailable, "not_ready", st.Name+": "+st.Error)
				return
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ready",
		"dependencies": deps,
	})
}

// Exercise handlers

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	c := s.grader.Catalog()

	list := c.List()
	if kind := models.Kind(r.URL.Query().Get("kind")); kind != "" {
		if !kind.Valid() {
			respondError(w, http.StatusBadRequest, "validation_error", "unknown exercise kind: "+string(kind))
			return
		}
		list = c.ListByKind(kind)
	}

	summaries := make([]models.Summary, 0, len(list))
	for _, ex := range list {
		summaries = append(summaries, ex.Summary())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"exercises": summaries,
		"total":     len(summaries),
	})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ex, ok := s.grader.Catalog().GetBySlug(slug)
	if !ok {
		respondError(w, http.StatusNotFound, "exercise_not_found", "exercise not found")
		return
	}

	respondJSON(w, http.StatusOK, ex)
}

// Attempt handlers

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	ex, ok := s.grader.Catalog().GetBySlug(slug)
	if !ok {
		respondError(w, http.StatusNotFound, "exercise_not_found", "exercise not found")
		return
	}

	var req models.VerifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sub, ok := req.Submission(ex.Kind)
	if !ok {
		respondError(w, http.StatusBadRequest, "validation_error", "html or css is required for "+string(ex.Kind)+" exercises")
		return
	}

	attempt, err := s.grader.Grade(r.Context(), slug, learnerID(r, req.LearnerID), sub)
	if err != nil {
		respondGradingError(w, err, slug)
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, ok := s.grader.Catalog().GetBySlug(slug); !ok {
		respondError(w, http.StatusNotFound, "exercise_not_found", "exercise not found")
		return
	}

	filters := models.AttemptFilters{
		Slug:      slug,
		LearnerID: r.URL.Query().Get("learner_id"),
		Limit:     50, // default
		Offset:    0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	attempts, err := s.grader.ListAttempts(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list attempts", "error", err, "slug", slug)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list attempts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

func (s *Server) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	attempt, err := s.grader.GetAttempt(r.Context(), id)
	if err != nil {
		slog.Error("failed to get attempt", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get attempt")
		return
	}
	if attempt == nil {
		respondError(w, http.StatusNotFound, "not_found", "attempt not found")
		return
	}

	respondJSON(w, http.StatusOK, attempt)
}

// learnerID prefers the body value and falls back to the client name
func learnerID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if client := ClientFromContext(r.Context()); client != nil {
		return client.Name
	}
	return ""
}
