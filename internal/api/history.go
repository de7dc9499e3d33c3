package api

import (
	"net/http"

	"github.com/fusepool/sedsvc/internal/history"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// listHistoryResponse wraps the paginated archive listing.
type listHistoryResponse struct {
	Transformations []*history.Entry `json:"transformations"`
	Total           int              `json:"total"`
	Limit           int              `json:"limit"`
	Offset          int              `json:"offset"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := s.archive.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	if entries == nil {
		entries = []*history.Entry{}
	}

	s.writeJSON(w, http.StatusOK, listHistoryResponse{
		Transformations: entries,
		Total:           total,
		Limit:           limit,
		Offset:          offset,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.archive.Stats(r.Context())
	if err != nil {
		s.logger.Error("get stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}
