package secret

import (
	"os"
	"strings"
	"sync"
)

const envPrefix = "ANNOTATOR_SECRET_"

// EnvStore implements SecretStore over environment variables. Key "remote"
// maps to ANNOTATOR_SECRET_REMOTE. Values set at runtime shadow the
// environment for the life of the process and are never exported.
type EnvStore struct {
	mu        sync.RWMutex
	overrides map[string][]byte
	deleted   map[string]bool
	lookup    func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{
		overrides: make(map[string][]byte),
		deleted:   make(map[string]bool),
		lookup:    os.LookupEnv,
	}
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(envPrefix)
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (e *EnvStore) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[key] = append([]byte(nil), value...)
	delete(e.deleted, key)
	return nil
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.overrides[key]; ok {
		return append([]byte(nil), v...), nil
	}
	if e.deleted[key] {
		return nil, nil
	}
	if v, ok := e.lookup(EnvName(key)); ok {
		return []byte(strings.TrimSpace(v)), nil
	}
	return nil, nil
}

func (e *EnvStore) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.overrides, key)
	e.deleted[key] = true
	return nil
}
