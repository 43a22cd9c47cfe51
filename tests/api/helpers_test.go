package api

import (
	"testing"
)

// backends are the persistent stores exercised end to end. Container
// backends are skipped under -short.
var backends = []string{"badger", "surrealdb", "mongo"}

// forEachBackend runs fn against a fresh environment per backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, env *Env)) {
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			env := newEnv(t, backend)
			defer env.Cleanup()
			fn(t, env)
		})
	}
}
