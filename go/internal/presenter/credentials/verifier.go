package credentials

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 work factor. Changing it invalidates every stored hash.
	Iterations = 100000
	// KeyLength is the derived key size in bytes.
	KeyLength = 64
	// SaltLength is the size of salts produced by NewSalt.
	SaltLength = 16
)

// ErrNoCredential is returned when neither a hash nor a secret is configured.
var ErrNoCredential = errors.New("no presenter credential configured")

// Hash derives the hex encoded PBKDF2-HMAC-SHA512 digest of secret with salt.
func Hash(secret, salt string) string {
	key := pbkdf2.Key([]byte(secret), []byte(salt), Iterations, KeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// Verify reports whether candidate derives to storedHash under salt.
// The comparison does not short-circuit on the first differing byte.
func Verify(candidate, storedHash, salt string) bool {
	if storedHash == "" {
		return false
	}
	derived := Hash(candidate, salt)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(storedHash)) == 1
}

// NewSalt returns a random hex encoded salt.
func NewSalt() (string, error) {
	b := make([]byte, SaltLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Credential is the single shared presenter secret, held only as salt and hash.
type Credential struct {
	Salt string
	Hash string
}

// Verifier checks candidate secrets against one Credential.
type Verifier struct {
	cred Credential
}

// NewVerifier builds a verifier from a stored hash, or from a plaintext secret
// which is hashed immediately and not retained.
func NewVerifier(salt, hash, secret string) (*Verifier, error) {
	switch {
	case hash != "":
		return &Verifier{cred: Credential{Salt: salt, Hash: hash}}, nil
	case secret != "":
		return &Verifier{cred: Credential{Salt: salt, Hash: Hash(secret, salt)}}, nil
	default:
		return nil, ErrNoCredential
	}
}

// Verify reports whether candidate matches the configured credential.
// A nil Verifier rejects every candidate.
func (v *Verifier) Verify(candidate string) bool {
	if v == nil {
		return false
	}
	return Verify(candidate, v.cred.Hash, v.cred.Salt)
}
