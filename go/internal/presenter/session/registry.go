package session

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Session is one live connection as seen by the registry.
type Session struct {
	ID          string
	ConnectedAt time.Time
}

// TransitionKind describes how presenter authority changed.
type TransitionKind int

const (
	// Unchanged means authority was not affected.
	Unchanged TransitionKind = iota
	// Granted means authority went from no presenter to a presenter.
	Granted
	// Handoff means authority moved from one session to another.
	Handoff
	// Regranted means the current presenter authenticated again.
	Regranted
	// Released means the presenter gave up authority and no one holds it now.
	Released
	// Ignored means the grant targeted a session that is no longer registered.
	Ignored
)

func (k TransitionKind) String() string {
	switch k {
	case Granted:
		return "granted"
	case Handoff:
		return "handoff"
	case Regranted:
		return "regranted"
	case Released:
		return "released"
	case Ignored:
		return "ignored"
	default:
		return "unchanged"
	}
}

// Transition is the result of a registry operation that may move authority.
type Transition struct {
	Kind TransitionKind
	// Presenter is the holder after the transition, empty when there is none.
	Presenter string
	// Revoked is the previous holder when authority was taken away from it.
	Revoked string
}

// Registry tracks connected sessions and the single presenter among them.
//
// The zero state is NoPresenter. At most one registered session holds
// authority at any time, and the holder is always a registered session.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	presenterID string
	log         zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Add admits a session. Adding an existing ID is a no-op and returns false.
func (r *Registry) Add(id string, connectedAt time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return false
	}
	r.sessions[id] = &Session{ID: id, ConnectedAt: connectedAt}

	r.log.Debug().
		Str("session_id", id).
		Int("sessions", len(r.sessions)).
		Msg("session admitted")
	return true
}

// Remove drops a session. The second return value is false when the session
// was not registered, so repeated disconnects never release authority twice.
func (r *Registry) Remove(id string) (Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return Transition{Kind: Unchanged, Presenter: r.presenterID}, false
	}
	delete(r.sessions, id)

	if r.presenterID != id {
		return Transition{Kind: Unchanged, Presenter: r.presenterID}, true
	}

	r.presenterID = ""
	r.log.Info().Str("session_id", id).Msg("presenter disconnected, authority released")
	return Transition{Kind: Released, Revoked: id}, true
}

// Grant hands authority to id after a successful authentication.
func (r *Registry) Grant(id string) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		r.log.Debug().Str("session_id", id).Msg("grant for unregistered session ignored")
		return Transition{Kind: Ignored, Presenter: r.presenterID}
	}

	previous := r.presenterID
	switch previous {
	case id:
		return Transition{Kind: Regranted, Presenter: id}
	case "":
		r.presenterID = id
		r.log.Info().Str("session_id", id).Msg("presenter authority granted")
		return Transition{Kind: Granted, Presenter: id}
	default:
		r.presenterID = id
		r.log.Info().
			Str("session_id", id).
			Str("revoked_session_id", previous).
			Msg("presenter authority handed off")
		return Transition{Kind: Handoff, Presenter: id, Revoked: previous}
	}
}

// Release takes authority away from id without removing the session.
// It is a no-op unless id is the current presenter.
func (r *Registry) Release(id string) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" || r.presenterID != id {
		return Transition{Kind: Unchanged, Presenter: r.presenterID}
	}
	r.presenterID = ""
	r.log.Info().Str("session_id", id).Msg("presenter authority released")
	return Transition{Kind: Released, Revoked: id}
}

// IsPresenter reports whether id currently holds authority.
func (r *Registry) IsPresenter(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return id != "" && r.presenterID == id
}

// PresenterActive reports whether any session holds authority.
func (r *Registry) PresenterActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presenterID != ""
}

// Presenter returns the current holder, or an empty string.
func (r *Registry) Presenter() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.presenterID
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the registered session IDs except the given origin, sorted.
func (r *Registry) IDs(except string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		if id == except {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
