package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tokenByteLength is the number of random bytes generated for internal secrets.
// 32 bytes = 256 bits of entropy, hex-encoded to a 64-character string.
//
// This satisfies RTCConfig.SigningSecret validate:"required,min=32"
// (64 hex chars > 32).
const tokenByteLength = 32

// GenerateSecureToken produces a cryptographically secure random token
// suitable for use as an RTC token signing secret or other high-privilege
// internal secret.
//
// The token is generated using crypto/rand (OS entropy source) and encoded
// as a lowercase hex string. The result is 64 characters long (32 bytes
// hex-encoded), providing 256 bits of entropy.
//
// Generated secrets are written straight to SSM and never displayed to
// the operator.
//
// Returns an error only if the system's cryptographic random number generator
// fails, which indicates a severe system-level problem.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	n, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("generating secure token: crypto/rand failed: %w", err)
	}
	if n != tokenByteLength {
		return "", fmt.Errorf("generating secure token: expected %d random bytes, got %d", tokenByteLength, n)
	}

	return hex.EncodeToString(buf), nil
}

// HashAPIKey produces the bcrypt hash of the client API key. The hash is
// what gets stored in SSM (security/api_key_hash); the plaintext key lives
// only in the client deployment secrets. The API server compares incoming
// Bearer tokens against this hash with bcrypt.CompareHashAndPassword.
func HashAPIKey(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("hashing API key: plaintext must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing API key: %w", err)
	}

	return string(hash), nil
}

// GenerateInternalSecrets generates all internally-created secrets required
// by the bootstrap process. These are secrets that do not come from external
// vendors but are created locally using cryptographic randomness.
//
// Currently generates:
// - RTC Signing Secret (rtc/signing_secret): Used to sign RTC channel tokens.
//
// Returns a map of SSM category/key paths to their generated values.
// The caller is responsible for writing these to SSM via SSMManager.PutSecret.
//
// The generated values are never logged or displayed to the operator.
// The SSMManager.PutSecret method logs only the path and value length,
// not the value itself.
func GenerateInternalSecrets() (map[string]string, error) {
	secrets := make(map[string]string, 1)

	signingSecret, err := GenerateSecureToken()
	if err != nil {
		return nil, fmt.Errorf("generating RTC signing secret: %w", err)
	}
	secrets["rtc/signing_secret"] = signingSecret

	return secrets, nil
}
