package handlers

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rohits-web03/mediadrop/internal/utils"
)

const (
	stateCookieName = "oauth_state"
	flowLogin       = "login"
	flowRegister    = "register"
)

// GenerateState creates a random state string carrying the OAuth flow
// metadata. The random part doubles as the value of the state cookie.
func GenerateState(data map[string]string) (state, nonce string, err error) {
	nonce, err = utils.GenerateSecureToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	payloadBytes, err := json.Marshal(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal state data: %w", err)
	}
	payloadPart := base64.RawURLEncoding.EncodeToString(payloadBytes)

	// Final format: nonce.payload
	return nonce + "." + payloadPart, nonce, nil
}

// DecodeState checks the state against the nonce from the cookie and
// returns its metadata.
func DecodeState(state, nonce string) (map[string]string, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid state format")
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(parts[0]), []byte(nonce)) != 1 {
		return nil, fmt.Errorf("state does not match this browser")
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode state payload: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(payloadBytes, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state JSON: %w", err)
	}

	return data, nil
}
