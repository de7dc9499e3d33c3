package api

import (
	"net/http"
)

// handleTransform runs a transformation synchronously: the response body is
// the transformed payload. Script errors are the client's fault and answer
// 400 with the parse failure.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTransformRequest(w, r)
	if !ok {
		return
	}

	res, err := s.transformer.Transform(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		s.logger.Error("write transform output", "error", err)
	}
}
