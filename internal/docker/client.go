package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// Client wraps the Docker API client used to reach the database container.
type Client struct {
	cli *client.Client
}

// NewClient connects to the container runtime using the standard
// environment (DOCKER_HOST and friends).
func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create container runtime client: %w", err)
	}
	return &Client{cli: cli}, nil
}

// Ping verifies the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("container runtime unreachable: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}
