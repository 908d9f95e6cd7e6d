package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/places-extractor/internal/delivery/http/request"
	"github.com/user/places-extractor/internal/delivery/http/response"
	"github.com/user/places-extractor/internal/extractor"
	"github.com/user/places-extractor/internal/usecase"
)

type Handler struct {
	service usecase.ExtractionService
	jobs    usecase.JobManager
}

func NewHandler(service usecase.ExtractionService, jobs usecase.JobManager) *Handler {
	return &Handler{
		service: service,
		jobs:    jobs,
	}
}

// HandleExtract runs an extraction within the request and returns its records.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req request.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Extract(r.Context(), "", req.Entity(), req.Force)
	if err != nil {
		h.writeUseCaseError(w, err, "Extraction failed", "query", req.Query)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewExtractResponse(res))
}

func (h *Handler) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req request.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.Submit(r.Context(), req.Entity())
	if err != nil {
		h.writeUseCaseError(w, err, "Failed to submit job", "query", req.Query)
		return
	}

	resp := response.SubmitJobResponse{
		Status:  "success",
		Message: "Extraction job queued",
		JobID:   job.ID,
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.jobs.Report(r.Context(), id)
	if err != nil {
		h.writeUseCaseError(w, err, "Failed to get job status", "job_id", id)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewJobStatusResponse(report))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, err error, msg string, args ...any) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, usecase.ErrJobNotFound):
		h.writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, extractor.ErrSearchUnavailable):
		slog.Warn(msg, append(args, "error", err)...)
		h.writeJSONError(w, "Search results are unavailable", http.StatusServiceUnavailable)
	default:
		slog.Error(msg, append(args, "error", err)...)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
