package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialCodec turns a password into a stored digest and checks a
// password against one. Isolating the digest algorithm behind this
// interface keeps a future migration to a stronger hash a contained
// change rather than a breaking one.
type CredentialCodec interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// SHA256Codec is the production codec: a single unsalted SHA-256 pass,
// hex encoded. Existing deployments store digests in exactly this form,
// so the algorithm must not change. Verification uses a constant-time
// comparison.
type SHA256Codec struct{}

// Hash returns the hex digest of the password.
func (SHA256Codec) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// Verify compares the password's digest against the stored one.
func (c SHA256Codec) Verify(password, digest string) bool {
	computed, _ := c.Hash(password)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// BcryptCodec is an alternative codec for deployments migrating off the
// fast hash. Not wired as the default; stored SHA-256 digests would stop
// verifying.
type BcryptCodec struct {
	Cost int
}

// Hash returns a bcrypt digest of the password.
func (c BcryptCodec) Hash(password string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify checks the password against a bcrypt digest.
func (BcryptCodec) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
