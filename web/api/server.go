package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hochfrequenz/taskforge/internal/domain"
	"github.com/hochfrequenz/taskforge/internal/runner"
)

// GoalStore is the read surface the API serves goals from
type GoalStore interface {
	ListGoals() ([]*domain.Goal, error)
	GetGoal(id string) (*domain.Goal, error)
}

// Orchestrator drives generation runs on behalf of API clients
type Orchestrator interface {
	StartGeneration(ctx context.Context, goalID, ownerID string) (string, error)
	GetStatus(ctx context.Context, handle string) (*runner.Status, error)
	Cancel(ctx context.Context, handle, reason string) (*runner.CancelResult, error)
}

// Server is the HTTP API server
type Server struct {
	store  GoalStore
	orch   Orchestrator
	addr   string
	mux    *http.ServeMux
	sseHub *SSEHub
}

// NewServer creates a new API server
func NewServer(store GoalStore, orch Orchestrator, addr string) *Server {
	s := &Server{
		store:  store,
		orch:   orch,
		addr:   addr,
		mux:    http.NewServeMux(),
		sseHub: NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/goals", s.listGoalsHandler())
	s.mux.HandleFunc("/api/goals/", s.goalActionHandler())
	s.mux.HandleFunc("/api/runs/", s.runActionHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
