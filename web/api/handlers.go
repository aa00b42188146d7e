package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hochfrequenz/taskforge/internal/domain"
	"github.com/hochfrequenz/taskforge/internal/runner"
)

// GoalResponse is the API response for a goal
type GoalResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
}

// GenerateRequest is the body of a generation request
type GenerateRequest struct {
	OwnerID string `json:"owner_id"`
}

// GenerateResponse returns the handle of the started run
type GenerateResponse struct {
	Handle string `json:"handle"`
}

// CancelRequest is the optional body of a cancellation request
type CancelRequest struct {
	Reason string `json:"reason"`
}

func goalToResponse(g *domain.Goal) GoalResponse {
	return GoalResponse{
		ID:          g.ID,
		OwnerID:     g.OwnerID,
		Title:       g.Title,
		Description: g.Description,
		Status:      string(g.Status),
	}
}

// errorStatus maps orchestration errors to HTTP status codes
func errorStatus(err error) int {
	var notFound *runner.NotFoundError
	var validation *runner.ValidationError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listGoalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		goals, err := s.store.ListGoals()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		responses := make([]GoalResponse, len(goals))
		for i, g := range goals {
			responses[i] = goalToResponse(g)
		}
		writeJSON(w, responses)
	}
}

// goalActionHandler serves /api/goals/{id} and /api/goals/{id}/generate
func (s *Server) goalActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/goals/")
		if path == "" {
			writeError(w, http.StatusBadRequest, "goal ID required")
			return
		}

		if id, ok := strings.CutSuffix(path, "/generate"); ok {
			s.generateGoal(w, r, id)
			return
		}
		s.getGoal(w, r, path)
	}
}

func (s *Server) getGoal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	goal, err := s.store.GetGoal(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	writeJSON(w, goalToResponse(goal))
}

func (s *Server) generateGoal(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req GenerateRequest
	if r.Body != nil {
		// An empty body means "no owner check"; a malformed one is an error.
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	handle, err := s.orch.StartGeneration(r.Context(), id, req.OwnerID)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	s.Broadcast(SSEEvent{Type: "run_started", Data: map[string]string{
		"goal_id": id,
		"handle":  handle,
	}})

	// Headers must land before WriteHeader flushes them
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(GenerateResponse{Handle: handle})
}

// decodeOptional decodes a JSON body, treating an empty body as the zero value
func decodeOptional(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// runActionHandler serves /api/runs/{handle}/status and /api/runs/{handle}/cancel
func (s *Server) runActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/runs/")

		if handle, ok := strings.CutSuffix(path, "/status"); ok && handle != "" {
			s.runStatus(w, r, handle)
			return
		}
		if handle, ok := strings.CutSuffix(path, "/cancel"); ok && handle != "" {
			s.cancelRun(w, r, handle)
			return
		}
		writeError(w, http.StatusNotFound, "unknown run endpoint")
	}
}

func (s *Server) runStatus(w http.ResponseWriter, r *http.Request, handle string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st, err := s.orch.GetStatus(r.Context(), handle)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, st)
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request, handle string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CancelRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.orch.Cancel(r.Context(), handle, req.Reason)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	s.Broadcast(SSEEvent{Type: "run_cancelled", Data: map[string]string{"handle": handle}})
	writeJSON(w, res)
}
