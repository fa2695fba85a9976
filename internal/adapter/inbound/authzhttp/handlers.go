package authzhttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/latchagent/latch-core/internal/domain/policy"
)

// authorizeRequest accepts both naming conventions spec.md §4.4 allows.
type authorizeRequest struct {
	ToolNameSnake  string                 `json:"tool_name"`
	ToolNameCamel  string                 `json:"toolName"`
	ToolInputSnake map[string]interface{} `json:"tool_input"`
	ArgsCamel      map[string]interface{} `json:"args"`
}

func (r authorizeRequest) toolName() string {
	if r.ToolNameCamel != "" {
		return r.ToolNameCamel
	}
	return r.ToolNameSnake
}

func (r authorizeRequest) toolInput() map[string]interface{} {
	if r.ArgsCamel != nil {
		return r.ArgsCamel
	}
	return r.ToolInputSnake
}

type authorizeResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	var req authorizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	result := s.svc.Authorize(r.Context(), sessionID, req.toolName(), req.toolInput())
	s.metrics.AuthorizeDecisions.WithLabelValues(string(result.Decision)).Inc()

	if result.Decision == policy.DecisionDeny {
		writeJSON(w, http.StatusForbidden, authorizeResponse{Decision: "deny", Reason: result.Reason})
		return
	}
	writeJSON(w, http.StatusOK, authorizeResponse{Decision: "allow"})
}

type notifyRequest struct {
	Type                string `json:"type"`
	LastAssistantMessage string `json:"last-assistant-message"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	var req notifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := s.svc.Notify(r.Context(), sessionID, req.Type); err != nil {
		writeJSONError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type feedRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r feedRequest) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Status
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	var req feedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if err := s.svc.Feed(sessionID, req.text()); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type secretsResolveRequest struct {
	Keys []string `json:"keys"`
}

type secretsResolveResponse struct {
	Resolved map[string]string `json:"resolved"`
}

func (s *Server) handleSecretsResolve(w http.ResponseWriter, r *http.Request) {
	var req secretsResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	resolved, err := s.svc.ResolveSecrets(r.Context(), req.Keys)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, secretsResolveResponse{Resolved: resolved})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			w.Header().Set("Connection", "close")
			writeJSONError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return err
		}
		writeJSONError(w, http.StatusBadRequest, errors.New("malformed JSON body"))
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
