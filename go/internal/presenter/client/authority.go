package client

import "sync"

// Status is the authority state a UI shows next to the presenter controls.
type Status string

const (
	StatusNone       Status = "none"
	StatusPresenting Status = "presenting"
	StatusLocked     Status = "locked"
	StatusUnlocked   Status = "unlocked"
)

// CallbackID identifies a registered callback for removal.
type CallbackID uint64

// Observer is an ordered list of callbacks.
type Observer struct {
	mu        sync.Mutex
	next      CallbackID
	ids       []CallbackID
	callbacks []func()
}

// Add registers fn and returns its id.
func (o *Observer) Add(fn func()) CallbackID {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	o.ids = append(o.ids, o.next)
	o.callbacks = append(o.callbacks, fn)
	return o.next
}

// Remove unregisters the callback with the given id. Unknown ids are ignored.
func (o *Observer) Remove(id CallbackID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, existing := range o.ids {
		if existing == id {
			o.ids = append(o.ids[:i], o.ids[i+1:]...)
			o.callbacks = append(o.callbacks[:i], o.callbacks[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every callback.
func (o *Observer) RemoveAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = nil
	o.callbacks = nil
}

// Notify calls every callback in registration order. Callbacks may register
// or remove callbacks; the change applies from the next Notify.
func (o *Observer) Notify() {
	o.mu.Lock()
	callbacks := make([]func(), len(o.callbacks))
	copy(callbacks, o.callbacks)
	o.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Authority mirrors the server's presenter state for one client.
type Authority struct {
	mu              sync.RWMutex
	presenterLocal  bool
	presenterActive bool
	ignoring        bool

	BecamePresenter Observer
	StartFollowing  Observer
}

// NewAuthority returns a mirror in the no-presenter state.
func NewAuthority() *Authority {
	return &Authority{}
}

// IsPresenterLocal reports whether this client holds authority.
func (a *Authority) IsPresenterLocal() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.presenterLocal
}

// PresenterActive reports whether any session holds authority.
func (a *Authority) PresenterActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.presenterActive
}

// Ignoring reports whether the user opted out of following.
func (a *Authority) Ignoring() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ignoring
}

// IsFollowing reports whether incoming presenter values should be applied.
func (a *Authority) IsFollowing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.presenterActive && !a.ignoring
}

// ShouldSuppressLocalInput reports whether local navigation must be ignored
// because another session is presenting and this client follows it.
func (a *Authority) ShouldSuppressLocalInput() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.presenterLocal && a.presenterActive && !a.ignoring
}

// HandleAuthResponse applies a presenter-auth reply. A false reply is also
// how the server revokes authority.
func (a *Authority) HandleAuthResponse(granted bool) {
	a.mu.Lock()
	a.presenterLocal = granted
	a.mu.Unlock()

	if granted {
		a.BecamePresenter.Notify()
	}
}

// HandlePresenterStatus applies a presenter broadcast. Repeats of the
// current status are ignored.
func (a *Authority) HandlePresenterStatus(active bool) {
	a.mu.Lock()
	if a.presenterActive == active {
		a.mu.Unlock()
		return
	}
	a.presenterActive = active
	following := active && !a.ignoring
	a.mu.Unlock()

	if following {
		a.StartFollowing.Notify()
	}
}

// SetIgnoring opts in or out of following. It has no effect while this
// client is presenting. Resuming while a presenter is active re-triggers
// the start-following callbacks so state is re-fetched.
func (a *Authority) SetIgnoring(ignoring bool) {
	a.mu.Lock()
	if a.presenterLocal || a.ignoring == ignoring {
		a.mu.Unlock()
		return
	}
	a.ignoring = ignoring
	resume := !ignoring && a.presenterActive
	a.mu.Unlock()

	if resume {
		a.StartFollowing.Notify()
	}
}

// ToggleIgnoring flips the ignoring flag.
func (a *Authority) ToggleIgnoring() {
	a.SetIgnoring(!a.Ignoring())
}

// Status derives the indicator state.
func (a *Authority) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	switch {
	case a.presenterLocal:
		return StatusPresenting
	case a.presenterActive && !a.ignoring:
		return StatusLocked
	case a.presenterActive:
		return StatusUnlocked
	default:
		return StatusNone
	}
}
