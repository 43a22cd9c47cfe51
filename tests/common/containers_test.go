package common

import (
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
)

func TestContainer_HostPort(t *testing.T) {
	c := &Container{host: "localhost", port: "32768"}
	assert.Equal(t, "localhost:32768", c.HostPort())

	s := &SurrealDBContainer{Container: c}
	assert.Equal(t, "ws://localhost:32768/rpc", s.Address())

	m := &MongoContainer{Container: c}
	assert.Equal(t, "mongodb://localhost:32768", m.URI())
}

func TestWaitFor_ExposedPortRequest(t *testing.T) {
	exposed := []string{"8000/tcp"}

	port := nat.Port(exposed[0])
	assert.Equal(t, "8000", port.Port())
	assert.Equal(t, "tcp", port.Proto())
	assert.NotNil(t, waitFor(port, "Started web server"))
}

func TestContainer_CleanupNil(t *testing.T) {
	var c *Container
	c.Cleanup()
	(&Container{}).Cleanup()
}
