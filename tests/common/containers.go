// Package common provides shared test infrastructure for the storage backends.
package common

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a started database container reachable on host:port.
type Container struct {
	container testcontainers.Container
	host      string
	port      string
}

// sharedContainer starts one container per process for a given image.
type sharedContainer struct {
	once      sync.Once
	container *Container
	err       error
}

func (s *sharedContainer) start(t *testing.T, name string, req testcontainers.ContainerRequest) *Container {
	t.Helper()

	if testing.Short() {
		t.Skipf("skipping %s container test in short mode", name)
	}

	s.once.Do(func() {
		s.container, s.err = startContainer(req)
		if s.err != nil {
			s.err = fmt.Errorf("start %s container: %w", name, s.err)
		}
	})

	if s.err != nil {
		t.Fatalf("%s container failed: %v", name, s.err)
	}
	return s.container
}

func startContainer(req testcontainers.ContainerRequest) (*Container, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get port: %w", err)
	}

	return &Container{
		container: container,
		host:      host,
		port:      mappedPort.Port(),
	}, nil
}

// HostPort returns host:port of the first exposed port.
func (c *Container) HostPort() string {
	return fmt.Sprintf("%s:%s", c.host, c.port)
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *Container) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}

func waitFor(port nat.Port, logLine string) wait.Strategy {
	return wait.ForAll(
		wait.ForListeningPort(port),
		wait.ForLog(logLine),
	).WithDeadline(60 * time.Second)
}
