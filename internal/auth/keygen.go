// Package auth handles caller credentials: issuing and verifying API keys and
// carrying the resolved caller through the request context.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Key format: qk_{env}_{prefix}_{secret}
// Example: qk_live_7a9x3k1c_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	KeyPrefixLen = 8  // hex encoded 4 bytes
	KeySecretLen = 32 // hex encoded 16 bytes

	keyScheme = "qk_"
)

// Environment indicators for key prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^qk_(live|test)_([a-f0-9]{8})_([a-f0-9]{32})$`)
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // shown once
	Hash      string
	Prefix    string
}

// GenerateAPIKey creates a new key for env. Unknown envs become live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	return generateAPIKey(env, DefaultParams)
}

func generateAPIKey(env string, p Params) (*GeneratedKey, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := keyScheme + env + "_" + prefix + "_" + secret

	hash, err := HashKeyWithParams(plaintext, p)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{Plaintext: plaintext, Hash: hash, Prefix: prefix}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParsedKey contains the parsed parts of an API key.
type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// ParseAPIKey extracts the components from a plaintext API key.
func ParseAPIKey(key string) (*ParsedKey, error) {
	m := keyFormatRegex.FindStringSubmatch(key)
	if m == nil {
		return nil, ErrInvalidKeyFormat
	}
	return &ParsedKey{Env: m[1], Prefix: m[2], Secret: m[3]}, nil
}

// IsAPIKey reports whether a bearer credential claims to be an API key rather
// than a session token. It does not validate the format.
func IsAPIKey(credential string) bool {
	return strings.HasPrefix(credential, keyScheme)
}
