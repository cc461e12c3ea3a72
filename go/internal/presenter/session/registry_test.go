package session

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(ids ...string) *Registry {
	r := NewRegistry(zerolog.Nop())
	for _, id := range ids {
		r.Add(id, time.Now())
	}
	return r
}

func TestGrantFromNoPresenter(t *testing.T) {
	r := newTestRegistry("s1", "s2")
	assert.False(t, r.PresenterActive())

	tr := r.Grant("s1")

	assert.Equal(t, Transition{Kind: Granted, Presenter: "s1"}, tr)
	assert.True(t, r.IsPresenter("s1"))
	assert.False(t, r.IsPresenter("s2"))
	assert.True(t, r.PresenterActive())
}

func TestGrantHandoffRevokesPrevious(t *testing.T) {
	r := newTestRegistry("s1", "s2")
	r.Grant("s1")

	tr := r.Grant("s2")

	assert.Equal(t, Handoff, tr.Kind)
	assert.Equal(t, "s2", tr.Presenter)
	assert.Equal(t, "s1", tr.Revoked)
	assert.False(t, r.IsPresenter("s1"))
	assert.True(t, r.IsPresenter("s2"))
}

func TestRegrantKeepsHolder(t *testing.T) {
	r := newTestRegistry("s1")
	r.Grant("s1")

	tr := r.Grant("s1")

	assert.Equal(t, Regranted, tr.Kind)
	assert.True(t, r.IsPresenter("s1"))
}

func TestGrantUnregisteredIsIgnored(t *testing.T) {
	r := newTestRegistry("s1")
	r.Grant("s1")

	tr := r.Grant("gone")

	assert.Equal(t, Ignored, tr.Kind)
	assert.Equal(t, "s1", r.Presenter())
}

func TestRemovePresenterReleasesOnce(t *testing.T) {
	r := newTestRegistry("s1", "s2")
	r.Grant("s1")

	tr, ok := r.Remove("s1")
	require.True(t, ok)
	assert.Equal(t, Released, tr.Kind)
	assert.Equal(t, "s1", tr.Revoked)
	assert.False(t, r.PresenterActive())

	tr, ok = r.Remove("s1")
	assert.False(t, ok)
	assert.Equal(t, Unchanged, tr.Kind)
}

func TestRemoveNonPresenterKeepsAuthority(t *testing.T) {
	r := newTestRegistry("s1", "s2")
	r.Grant("s1")

	tr, ok := r.Remove("s2")

	require.True(t, ok)
	assert.Equal(t, Unchanged, tr.Kind)
	assert.True(t, r.IsPresenter("s1"))
	assert.Equal(t, 1, r.Len())
}

func TestRelease(t *testing.T) {
	r := newTestRegistry("s1", "s2")
	r.Grant("s1")

	assert.Equal(t, Unchanged, r.Release("s2").Kind)
	assert.True(t, r.IsPresenter("s1"))

	tr := r.Release("s1")
	assert.Equal(t, Released, tr.Kind)
	assert.True(t, r.Contains("s1"))
	assert.False(t, r.PresenterActive())

	assert.Equal(t, Unchanged, r.Release("s1").Kind)
}

func TestIsPresenterEmptyID(t *testing.T) {
	r := newTestRegistry()
	assert.False(t, r.IsPresenter(""))
}

func TestIDsExcludesOrigin(t *testing.T) {
	r := newTestRegistry("c", "a", "b")

	assert.Equal(t, []string{"a", "c"}, r.IDs("b"))
	assert.Equal(t, []string{"a", "b", "c"}, r.IDs(""))
	assert.False(t, r.Add("a", time.Now()))
}

// At most one session holds authority over any sequence of operations.
func TestSingleHolderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := newTestRegistry()
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%d", i)
	}

	for step := 0; step < 2000; step++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(4) {
		case 0:
			r.Add(id, time.Now())
		case 1:
			r.Remove(id)
		case 2:
			r.Grant(id)
		case 3:
			r.Release(id)
		}

		holders := 0
		for _, candidate := range ids {
			if r.IsPresenter(candidate) {
				holders++
				require.True(t, r.Contains(candidate), "holder must be registered")
			}
		}
		require.LessOrEqual(t, holders, 1, "step %d", step)
		require.Equal(t, holders == 1, r.PresenterActive())
	}
}
