package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/aelpxy/searxops/internal/constants"
	"github.com/aelpxy/searxops/internal/runtime"
	"github.com/docker/docker/client"
)

type Client struct {
	cli         *client.Client
	runtimeInfo *runtime.RuntimeInfo
	helperImage string
}

func NewClient(helperImage string) (*Client, error) {
	runtimeInfo, err := runtime.DetectRuntime()
	if err != nil {
		return nil, fmt.Errorf("failed to detect container runtime: %w\nplease install docker", err)
	}

	if os.Getenv("DOCKER_HOST") == "" {
		os.Setenv("DOCKER_HOST", runtimeInfo.GetSocketURI())
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create container runtime client: %w", err)
	}

	if helperImage == "" {
		helperImage = constants.DefaultHelperImage
	}

	return &Client{
		cli:         cli,
		runtimeInfo: runtimeInfo,
		helperImage: helperImage,
	}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func (c *Client) RuntimeName() string {
	return c.runtimeInfo.GetRuntimeName()
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("runtime daemon not responding: %w", err)
	}
	return nil
}
