package api

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealthz reports liveness. The process can serve status reads even
// when intake is down, so a halted or unactivated engine degrades the
// check rather than failing requests outright.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Accepting() {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
