package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fusepool/sedsvc/internal/engine"
	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/registry"
	"github.com/fusepool/sedsvc/internal/transform"
)

const (
	maxBodySize       = 1 << 20 // 1 MB
	retryAfterSeconds = 5

	defaultWaitSeconds = 30
	maxWaitSeconds     = 120
)

// submitJobResponse is the acknowledgement body for POST /v1/jobs.
type submitJobResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTransformRequest(w, r)
	if !ok {
		return
	}

	id, err := s.engine.Submit(req)
	switch {
	case errors.Is(err, engine.ErrBacklogFull):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		s.writeError(w, http.StatusServiceUnavailable, "backlog full, retry later")
		return
	case errors.Is(err, engine.ErrNotActivated), errors.Is(err, engine.ErrHalted):
		s.writeError(w, http.StatusServiceUnavailable, "engine not accepting jobs")
		return
	case err != nil:
		s.logger.Error("submit job", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	job, err := s.engine.Status(id)
	if err != nil {
		s.logger.Error("status after submit", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	w.Header().Set("Location", "/v1/jobs/"+id)
	s.writeJSON(w, http.StatusAccepted, submitJobResponse{
		ID:        job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	s.writeJobStatus(w, chi.URLParam(r, "id"))
}

// handleWaitJob blocks until the job reaches a terminal state, the wait
// window elapses, or the client goes away, then answers like a status poll.
// The subscription happens before the existence check so a completion
// between the two is never missed.
func (s *Server) handleWaitJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ch, cancel := s.engine.Notifier().Subscribe(id)
	defer cancel()

	if _, err := s.engine.Status(id); errors.Is(err, registry.ErrUnknownID) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	timeoutS := parseIntQuery(r, "timeout_s", defaultWaitSeconds)
	if timeoutS <= 0 || timeoutS > maxWaitSeconds {
		timeoutS = defaultWaitSeconds
	}

	select {
	case <-ch:
	case <-time.After(time.Duration(timeoutS) * time.Second):
	case <-r.Context().Done():
		return
	}

	s.writeJobStatus(w, id)
}

// writeJobStatus answers with the job's current state: 202 with the record
// while pending, the raw output while completed, 500 with the record when
// failed, 404 for identifiers the registry does not know.
func (s *Server) writeJobStatus(w http.ResponseWriter, id string) {
	job, err := s.engine.Status(id)
	if errors.Is(err, registry.ErrUnknownID) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("job status", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get job status")
		return
	}

	switch job.Status {
	case model.StatusPending:
		s.writeJSON(w, http.StatusAccepted, job)
	case model.StatusCompleted:
		w.Header().Set("Content-Type", job.OutputType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(job.Output); err != nil {
			s.logger.Error("write job output", "job_id", id, "error", err)
		}
	case model.StatusFailed:
		s.writeJSON(w, http.StatusInternalServerError, job)
	}
}

// decodeTransformRequest validates a transformation request shared by the
// sync and async endpoints: the sed script comes from the script query
// parameter, the payload is the request body, and the input media type must
// be one the transformer accepts. A missing Content-Type header is filled
// by sniffing the payload.
func (s *Server) decodeTransformRequest(w http.ResponseWriter, r *http.Request) (*model.Request, bool) {
	script := r.URL.Query().Get("script")
	if script == "" {
		s.writeError(w, http.StatusBadRequest, "script query parameter is required")
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	if !transform.Accepts(s.transformer, contentType) {
		s.writeError(w, http.StatusUnsupportedMediaType, "unsupported media type: "+contentType)
		return nil, false
	}

	return &model.Request{
		Data:        data,
		Script:      script,
		ContentType: contentType,
	}, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return defaultVal
	}
	return v
}
