package common

import (
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

var surreal sharedContainer

// SurrealDBContainer wraps a testcontainers SurrealDB instance.
type SurrealDBContainer struct {
	*Container
}

// StartSurrealDB starts a shared SurrealDB container for the test run.
// Only one container is created per process.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	c := surreal.start(t, "SurrealDB", testcontainers.ContainerRequest{
		Image:        "surrealdb/surrealdb:v3.0.0",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", "root", "--pass", "root"},
		WaitingFor:   waitFor("8000/tcp", "Started web server"),
	})
	return &SurrealDBContainer{Container: c}
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s/rpc", c.HostPort())
}
