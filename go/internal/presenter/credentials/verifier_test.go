package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	stored := Hash("correct horse", "pepper")

	assert.True(t, Verify("correct horse", stored, "pepper"))
	assert.False(t, Verify("correct horse ", stored, "pepper"))
	assert.False(t, Verify("correct horse", stored, "salt"))
	assert.False(t, Verify("", stored, "pepper"))
	assert.False(t, Verify("anything", "", "pepper"), "empty stored hash never verifies")
}

func TestHashIsDeterministic(t *testing.T) {
	a := Hash("secret", "salt")
	b := Hash("secret", "salt")

	assert.Equal(t, a, b)
	assert.Len(t, a, KeyLength*2)
	assert.NotEqual(t, a, Hash("secret", "salt2"))
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, SaltLength*2)
	assert.NotEqual(t, a, b)
}

func TestNewVerifier(t *testing.T) {
	t.Run("from hash", func(t *testing.T) {
		v, err := NewVerifier("s", Hash("pw", "s"), "")
		require.NoError(t, err)
		assert.True(t, v.Verify("pw"))
		assert.False(t, v.Verify("nope"))
	})

	t.Run("from secret", func(t *testing.T) {
		v, err := NewVerifier("s", "", "pw")
		require.NoError(t, err)
		assert.True(t, v.Verify("pw"))
		assert.False(t, v.Verify("pw2"))
	})

	t.Run("hash wins over secret", func(t *testing.T) {
		v, err := NewVerifier("s", Hash("a", "s"), "b")
		require.NoError(t, err)
		assert.True(t, v.Verify("a"))
		assert.False(t, v.Verify("b"))
	})

	t.Run("nothing configured", func(t *testing.T) {
		v, err := NewVerifier("s", "", "")
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Nil(t, v)
		assert.False(t, v.Verify("anything"))
	})
}
