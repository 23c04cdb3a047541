package docker

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	helperVolumeTarget  = "/volume"
	helperArchiveTarget = "/backup"
)

// ArchiveVolume writes a gzip tarball of volumeName into dir/fileName using a
// throwaway helper container. The volume is mounted read-only.
func (c *Client) ArchiveVolume(ctx context.Context, volumeName, dir, fileName string) error {
	cmd := []string{"tar", "czf", helperArchiveTarget + "/" + fileName, "-C", helperVolumeTarget, "."}
	mounts := []mount.Mount{
		{
			Type:     mount.TypeVolume,
			Source:   volumeName,
			Target:   helperVolumeTarget,
			ReadOnly: true,
		},
		{
			Type:   mount.TypeBind,
			Source: dir,
			Target: helperArchiveTarget,
		},
	}

	if err := c.runHelper(ctx, cmd, mounts); err != nil {
		return fmt.Errorf("failed to archive volume %s: %w", volumeName, err)
	}
	return nil
}

// ExtractVolume unpacks dir/fileName into volumeName. Existing content in the
// volume is removed first.
func (c *Client) ExtractVolume(ctx context.Context, volumeName, dir, fileName string) error {
	script := fmt.Sprintf(
		"rm -rf %[1]s/* %[1]s/..?* %[1]s/.[!.]* 2>/dev/null; tar xzf %[2]s/%[3]s -C %[1]s",
		helperVolumeTarget, helperArchiveTarget, fileName,
	)
	mounts := []mount.Mount{
		{
			Type:   mount.TypeVolume,
			Source: volumeName,
			Target: helperVolumeTarget,
		},
		{
			Type:     mount.TypeBind,
			Source:   dir,
			Target:   helperArchiveTarget,
			ReadOnly: true,
		},
	}

	if err := c.runHelper(ctx, []string{"sh", "-c", script}, mounts); err != nil {
		return fmt.Errorf("failed to restore volume %s: %w", volumeName, err)
	}
	return nil
}

func (c *Client) runHelper(ctx context.Context, cmd []string, mounts []mount.Mount) error {
	ctx, cancel := context.WithTimeout(ctx, HelperTimeout)
	defer cancel()

	if err := c.ensureImage(ctx, c.helperImage); err != nil {
		return err
	}

	resp, err := c.cli.ContainerCreate(ctx,
		&container.Config{Image: c.helperImage, Cmd: cmd},
		&container.HostConfig{Mounts: mounts},
		nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create helper container: %w", err)
	}
	defer func() {
		rmCtx, rmCancel := context.WithTimeout(context.Background(), ContainerOpTimeout)
		defer rmCancel()
		_ = c.cli.ContainerRemove(rmCtx, resp.ID, container.RemoveOptions{Force: true})
	}()

	if err := c.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start helper container: %w", err)
	}

	statusCh, errCh := c.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error waiting for helper container: %w", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("helper exited with code %d: %s", status.StatusCode, c.helperOutput(ctx, resp.ID))
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (c *Client) helperOutput(ctx context.Context, id string) string {
	reader, err := c.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "no output"
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "no output"
	}
	return strings.TrimSpace(buf.String())
}
