package common

import (
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

var mongo sharedContainer

// MongoContainer wraps a testcontainers MongoDB instance.
type MongoContainer struct {
	*Container
}

// StartMongo starts a shared standalone MongoDB container for the test run.
func StartMongo(t *testing.T) *MongoContainer {
	t.Helper()

	c := mongo.start(t, "MongoDB", testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   waitFor("27017/tcp", "Waiting for connections"),
	})
	return &MongoContainer{Container: c}
}

// URI returns the connection string for the container.
func (c *MongoContainer) URI() string {
	return fmt.Sprintf("mongodb://%s", c.HostPort())
}
