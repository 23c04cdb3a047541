package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aelpxy/searxops/internal/utils"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

func (c *Client) ListContainers(ctx context.Context) ([]models.ContainerSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, ContainerOpTimeout)
	defer cancel()

	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	summaries := make([]models.ContainerSummary, 0, len(containers))
	for _, cont := range containers {
		name := cont.ID
		if len(cont.Names) > 0 {
			name = strings.TrimPrefix(cont.Names[0], "/")
		}
		summaries = append(summaries, models.ContainerSummary{
			ID:     utils.TruncateID(cont.ID, 12),
			Name:   name,
			Image:  cont.Image,
			Status: cont.Status,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

func (c *Client) ContainerLogs(ctx context.Context, name string, tail int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, ContainerOpTimeout)
	defer cancel()

	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("container %s not found", name)
		}
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}

	reader, err := c.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if inspect.Config != nil && inspect.Config.Tty {
		_, err = io.Copy(&buf, reader)
	} else {
		_, err = stdcopy.StdCopy(&buf, &buf, reader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read container logs: %w", err)
	}

	var lines []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Exec runs cmd inside a running container and returns its combined output
// and exit code.
func (c *Client) Exec(ctx context.Context, name string, cmd []string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, ExecTimeout)
	defer cancel()

	created, err := c.cli.ContainerExecCreate(ctx, name, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", -1, fmt.Errorf("failed to create exec in %s: %w", name, err)
	}

	attach, err := c.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", -1, fmt.Errorf("failed to attach exec in %s: %w", name, err)
	}
	defer attach.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, attach.Reader); err != nil {
		return "", -1, fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return out.String(), -1, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return strings.TrimSpace(out.String()), inspect.ExitCode, nil
}
