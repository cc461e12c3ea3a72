package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorityPredicates(t *testing.T) {
	cases := []struct {
		name                    string
		local, active, ignoring bool
		following, suppress     bool
		status                  Status
	}{
		{"idle", false, false, false, false, false, StatusNone},
		{"ignoring without presenter", false, false, true, false, false, StatusNone},
		{"following", false, true, false, true, true, StatusLocked},
		{"ignoring presenter", false, true, true, false, false, StatusUnlocked},
		{"presenting", true, true, false, true, false, StatusPresenting},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &Authority{presenterLocal: tc.local, presenterActive: tc.active, ignoring: tc.ignoring}
			assert.Equal(t, tc.following, a.IsFollowing())
			assert.Equal(t, tc.suppress, a.ShouldSuppressLocalInput())
			assert.Equal(t, tc.status, a.Status())
		})
	}
}

func TestAuthResponse(t *testing.T) {
	a := NewAuthority()
	became := 0
	a.BecamePresenter.Add(func() { became++ })

	a.HandleAuthResponse(false)
	assert.False(t, a.IsPresenterLocal())
	assert.Equal(t, 0, became)

	a.HandleAuthResponse(true)
	assert.True(t, a.IsPresenterLocal())
	assert.Equal(t, 1, became)

	// Revocation arrives as a failed auth reply.
	a.HandleAuthResponse(false)
	assert.False(t, a.IsPresenterLocal())
	assert.Equal(t, 1, became)
}

func TestPresenterStatusStartsFollowing(t *testing.T) {
	a := NewAuthority()
	started := 0
	a.StartFollowing.Add(func() { started++ })

	a.HandlePresenterStatus(true)
	assert.Equal(t, 1, started)
	assert.True(t, a.ShouldSuppressLocalInput())

	a.HandlePresenterStatus(true)
	assert.Equal(t, 1, started, "unchanged status is a no-op")

	a.HandlePresenterStatus(false)
	assert.Equal(t, 1, started)
	assert.False(t, a.ShouldSuppressLocalInput())
}

func TestPresenterStatusWhileIgnoring(t *testing.T) {
	a := NewAuthority()
	started := 0
	a.StartFollowing.Add(func() { started++ })

	a.SetIgnoring(true)
	a.HandlePresenterStatus(true)
	assert.Equal(t, 0, started)
	assert.False(t, a.ShouldSuppressLocalInput())

	a.SetIgnoring(false)
	assert.Equal(t, 1, started, "resuming re-fetches presenter state")
	assert.True(t, a.IsFollowing())
}

func TestSetIgnoring(t *testing.T) {
	t.Run("resume without presenter does not notify", func(t *testing.T) {
		a := NewAuthority()
		started := 0
		a.StartFollowing.Add(func() { started++ })

		a.ToggleIgnoring()
		assert.True(t, a.Ignoring())
		a.ToggleIgnoring()
		assert.False(t, a.Ignoring())
		assert.Equal(t, 0, started)
	})

	t.Run("presenter cannot ignore itself", func(t *testing.T) {
		a := NewAuthority()
		a.HandleAuthResponse(true)
		a.HandlePresenterStatus(true)

		a.SetIgnoring(true)
		assert.False(t, a.Ignoring())
		assert.Equal(t, StatusPresenting, a.Status())
	})
}

func TestObserver(t *testing.T) {
	var o Observer
	var calls []string

	first := o.Add(func() { calls = append(calls, "first") })
	o.Add(func() { calls = append(calls, "second") })

	o.Notify()
	assert.Equal(t, []string{"first", "second"}, calls)

	o.Remove(first)
	o.Remove(first)
	calls = nil
	o.Notify()
	assert.Equal(t, []string{"second"}, calls)

	o.RemoveAll()
	calls = nil
	o.Notify()
	assert.Empty(t, calls)
}
