package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/podium/go/internal/presenter/session"
	"github.com/mcdev12/podium/go/internal/presenter/state"
)

// StateResponse is the read-only view served at /api/state.
type StateResponse struct {
	PresenterActive bool                       `json:"presenter_active"`
	Sessions        int                        `json:"sessions"`
	Values          map[string]json.RawMessage `json:"values"`
}

// StateHandler serves the current replicated values over plain HTTP.
type StateHandler struct {
	registry *session.Registry
	store    *state.Store
}

// NewStateHandler creates a new state handler
func NewStateHandler(registry *session.Registry, store *state.Store) *StateHandler {
	return &StateHandler{
		registry: registry,
		store:    store,
	}
}

// HandleGetState handles GET /api/state
func (h *StateHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StateResponse{
		PresenterActive: h.registry.PresenterActive(),
		Sessions:        h.registry.Len(),
		Values:          h.store.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode state response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", h.HandleGetState)
}
