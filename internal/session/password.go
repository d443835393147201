package session

import (
	"errors"
	"fmt"

	"github.com/rohits-web03/mediadrop/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// Hasher turns passwords into stored credentials and checks them.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}

// BcryptHasher hashes with bcrypt at Cost, or bcrypt.DefaultCost when zero.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password is longer than %d bytes", common.ErrInvalidInput, MaxPasswordBytes)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	if hash == "" {
		return errors.New("account has no password")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
