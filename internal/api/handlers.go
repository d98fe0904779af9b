package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/groveworld/guardian/internal/actions"
)

// ValidateRequest is the sidecar validation payload. The position is the
// server-authoritative actor position supplied by the gameplay process,
// never a client-reported coordinate.
type ValidateRequest struct {
	ActorID  string           `json:"actor_id"`
	Kind     string           `json:"kind"`
	Payload  json.RawMessage  `json:"payload"`
	Position actions.Position `json:"position"`
}

// IntegrityRequest is the out-of-band movement capability report.
type IntegrityRequest struct {
	ActorID   string  `json:"actor_id"`
	Speed     float64 `json:"speed"`
	JumpPower float64 `json:"jump_power"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ActorID == "" || req.Kind == "" {
		writeError(w, http.StatusBadRequest, "actor_id and kind are required")
		return
	}

	decision := s.engine.Validate(req.ActorID, actions.Kind(req.Kind), req.Payload, req.Position, time.Now())
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	var req IntegrityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required")
		return
	}

	s.engine.RecordIntegritySample(req.ActorID, req.Speed, req.JumpPower, time.Now())
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	s.engine.OnSessionStart(actorID, time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "opened", "actor_id": actorID})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	s.engine.OnSessionEnd(actorID, time.Now())
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived", "actor_id": actorID})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	report, err := s.engine.Report(actorID, time.Now())
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// operator extracts the acting operator identity for the audit trail.
// Authentication proper belongs to the deployment's proxy layer.
func operator(r *http.Request) string {
	if op := r.Header.Get("X-Operator"); op != "" {
		return op
	}
	return "unknown"
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	if err := s.engine.ResetViolations(actorID, operator(r), time.Now()); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "actor_id": actorID})
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	actorID := mux.Vars(r)["id"]
	if !s.engine.Unban(actorID, operator(r), time.Now()) {
		writeError(w, http.StatusNotFound, "no ban on record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unbanned", "actor_id": actorID})
}
