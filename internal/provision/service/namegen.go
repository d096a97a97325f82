package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TempProjectPrefix marks projects created by the demo as temporary; the
// cleanup reaper only ever considers resources carrying this prefix.
const TempProjectPrefix = "temp-project"

const (
	nameAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	nameSuffixLength = 10
)

// GenerateProjectName returns a unique temporary project name:
// temp-project-<10 random lowercase-alphanumerics>. Collisions are left to
// the backend to reject; creation is never retried.
func GenerateProjectName() (string, error) {
	buf := make([]byte, nameSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate project name: %w", err)
	}
	for i, b := range buf {
		buf[i] = nameAlphabet[int(b)%len(nameAlphabet)]
	}
	return TempProjectPrefix + "-" + string(buf), nil
}

// GenerateSecret returns 32 random bytes hex-encoded, for templates that
// declare a generated secret env var.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
