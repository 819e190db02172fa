package security

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")

// VerifyPassword checks a plaintext against a PHC-encoded argon2id hash
// ($argon2id$v=19$m=...,t=...,p=...$salt$hash) in constant time.
func VerifyPassword(encodedHash, plaintext string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHashFormat
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, errInvalidHashFormat
	}
	if version != argon2.Version {
		return false, fmt.Errorf("argon2: unsupported version %d", version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, errInvalidHashFormat
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errInvalidHashFormat
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errInvalidHashFormat
	}

	computed := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallelism, uint32(len(expected)))

	return subtle.ConstantTimeCompare(expected, computed) == 1, nil
}

// HashSource supplies the stored credential hash for a subject.
type HashSource interface {
	PasswordHash(ctx context.Context, subject string) (string, error)
}

// CredentialVerifier implements port.CredentialVerifier against argon2id
// hashes held by the account store.
type CredentialVerifier struct {
	hashes HashSource
}

// NewCredentialVerifier wires a hash source into a credential verifier.
func NewCredentialVerifier(hashes HashSource) *CredentialVerifier {
	return &CredentialVerifier{hashes: hashes}
}

// VerifyPassword loads the stored hash for the subject and compares.
// An unknown subject verifies as false rather than erroring, so callers
// cannot distinguish it from a wrong password.
func (v *CredentialVerifier) VerifyPassword(ctx context.Context, subject, plaintext string) (bool, error) {
	hash, err := v.hashes.PasswordHash(ctx, subject)
	if err != nil {
		return false, err
	}
	return VerifyPassword(hash, plaintext)
}
