package secret

import (
	"fmt"
	"strings"
)

// SecretStore provides a pluggable interface for storing sensitive data
// such as the remote's CSRF token or database password. Implementations
// use the macOS Keychain or environment variables.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// New returns the SecretStore for backend: "keychain" or "env".
func New(backend string) (SecretStore, error) {
	switch strings.ToLower(backend) {
	case "keychain":
		return NewKeychainStore(), nil
	case "env", "":
		return NewEnvStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret backend: %s", backend)
	}
}

// Lookup reads key from store as a string. A missing key yields "".
func Lookup(store SecretStore, key string) (string, error) {
	v, err := store.Get(key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}
