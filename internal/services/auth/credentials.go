package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CredentialVerifier decides whether an API key is valid.
type CredentialVerifier interface {
	Verify(ctx context.Context, key string) (bool, error)
}

// TokenIssuer mints new API keys.
type TokenIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// PrefixVerifier accepts keys that carry Prefix and are at least
// MinLength bytes long. It performs no lookup.
type PrefixVerifier struct {
	Prefix    string
	MinLength int
}

// Verify implements CredentialVerifier.
func (v PrefixVerifier) Verify(_ context.Context, key string) (bool, error) {
	return strings.HasPrefix(key, v.Prefix) && len(key) >= v.MinLength, nil
}

// UUIDIssuer issues Prefix followed by a random UUID without dashes.
type UUIDIssuer struct {
	Prefix string
}

// Issue implements TokenIssuer.
func (i UUIDIssuer) Issue(context.Context) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return i.Prefix + strings.ReplaceAll(id.String(), "-", ""), nil
}

// keyPrefixLen is how much of a presented key is echoed back.
const keyPrefixLen = 6

// maskKey returns the first characters of key followed by "...".
func maskKey(key string) string {
	if runes := []rune(key); len(runes) > keyPrefixLen {
		key = string(runes[:keyPrefixLen])
	}
	return key + "..."
}

// bearerPrefix is stripped from the Authorization header.
const bearerPrefix = "Bearer "

// HeaderAPIKey carries an API key directly.
const HeaderAPIKey = "X-API-Key"

// extractKey reads the key from X-API-Key, falling back to the
// Authorization header with a leading "Bearer " removed. A header without
// the scheme is taken as the key itself.
func extractKey(h interface{ Get(string) string }) string {
	if key := h.Get(HeaderAPIKey); key != "" {
		return key
	}
	return strings.TrimPrefix(h.Get("Authorization"), bearerPrefix)
}
