package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for users, uploads and workspaces.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator returns random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator returns "<prefix>-1", "<prefix>-2", ... and is safe for
// concurrent use. Tests use it to get stable ids.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}

// GenerateSecureToken creates a cryptographically secure random token.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
