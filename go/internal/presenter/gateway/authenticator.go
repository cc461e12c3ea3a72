package gateway

import (
	"context"
)

// SecretVerifier checks a candidate presenter secret.
type SecretVerifier interface {
	Verify(candidate string) bool
}

// Authenticator runs secret verification on a bounded number of goroutines so
// slow hashing never runs on the hub's dispatch loop.
type Authenticator struct {
	verifier SecretVerifier
	slots    chan struct{}
}

// NewAuthenticator creates an authenticator allowing workers concurrent checks.
func NewAuthenticator(verifier SecretVerifier, workers int) *Authenticator {
	if workers <= 0 {
		workers = 1
	}
	return &Authenticator{
		verifier: verifier,
		slots:    make(chan struct{}, workers),
	}
}

// Verify blocks the calling connection until a slot is free and the check is
// done. It fails closed when ctx ends first or no verifier is configured.
func (a *Authenticator) Verify(ctx context.Context, candidate string) bool {
	if a == nil || a.verifier == nil {
		return false
	}

	select {
	case a.slots <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	defer func() { <-a.slots }()

	return a.verifier.Verify(candidate)
}
