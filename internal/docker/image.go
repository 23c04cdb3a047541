package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/aelpxy/searxops/pkg/models"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
)

type PullProgress struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (c *Client) PullImage(ctx context.Context, imageName string, progressWriter io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, ImagePullTimeout)
	defer cancel()

	reader, err := c.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	var lastStatus string
	for scanner.Scan() {
		var progress PullProgress
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}
		if progress.ID == "" && progress.Status != lastStatus {
			if progressWriter != nil {
				fmt.Fprintf(progressWriter, "  %s\n", progress.Status)
			}
			lastStatus = progress.Status
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull output: %w", err)
	}

	return nil
}

func (c *Client) ensureImage(ctx context.Context, imageName string) error {
	_, _, err := c.cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", imageName, err)
	}
	return c.PullImage(ctx, imageName, nil)
}

func (c *Client) ListImages(ctx context.Context) ([]string, error) {
	images, err := c.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var names []string
	for _, img := range images {
		if len(img.RepoTags) == 0 {
			names = append(names, "<none>@"+img.ID)
			continue
		}
		names = append(names, img.RepoTags...)
	}
	sort.Strings(names)
	return names, nil
}

// PruneImages removes dangling images only.
func (c *Client) PruneImages(ctx context.Context) (models.PruneReport, error) {
	report, err := c.cli.ImagesPrune(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
	if err != nil {
		return models.PruneReport{}, fmt.Errorf("failed to prune images: %w", err)
	}

	return models.PruneReport{
		ImagesDeleted:  len(report.ImagesDeleted),
		SpaceReclaimed: report.SpaceReclaimed,
	}, nil
}
