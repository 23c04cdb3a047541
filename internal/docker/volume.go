package docker

import (
	"context"
	"fmt"
	"sort"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/volume"
)

func (c *Client) CreateVolume(ctx context.Context, volumeName string) error {
	_, err := c.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   volumeName,
		Driver: "local",
	})
	if err != nil {
		return fmt.Errorf("failed to create volume %s: %w", volumeName, err)
	}

	return nil
}

// RemoveVolume deletes a volume; a volume that does not exist is not an error.
func (c *Client) RemoveVolume(ctx context.Context, volumeName string) error {
	err := c.cli.VolumeRemove(ctx, volumeName, true)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete volume %s: %w", volumeName, err)
	}

	return nil
}

func (c *Client) VolumeExists(ctx context.Context, volumeName string) (bool, error) {
	_, err := c.cli.VolumeInspect(ctx, volumeName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) ListVolumes(ctx context.Context) ([]string, error) {
	resp, err := c.cli.VolumeList(ctx, volume.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	names := make([]string, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		names = append(names, v.Name)
	}
	sort.Strings(names)
	return names, nil
}
