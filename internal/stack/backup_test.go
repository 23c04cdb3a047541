package stack

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupWithoutCaddyVolumes(t *testing.T) {
	cfg := newTestStack(t)
	rt := newFakeRuntime("redis-data", "searxng-data")
	op := NewOperator(cfg, rt, &fakeCompose{})

	res, err := op.Backup(context.Background(), "before-update")
	require.NoError(t, err)

	dir := filepath.Join(cfg.BackupDir, "before-update")
	assert.Equal(t, dir, res.Snapshot.Path)
	assert.FileExists(t, filepath.Join(dir, "redis-data.tar.gz"))
	assert.FileExists(t, filepath.Join(dir, "searxng-data.tar.gz"))
	assert.FileExists(t, filepath.Join(dir, "docker-compose.yaml"))
	assert.FileExists(t, filepath.Join(dir, "searxng", "settings.yml"))
	assert.FileExists(t, filepath.Join(dir, "backup-info.txt"))
	assert.FileExists(t, filepath.Join(dir, "manifest.json"))
	assert.NoFileExists(t, filepath.Join(dir, "caddy-data.tar.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "caddy-config.tar.gz"))

	assert.Equal(t, []string{"caddy-data", "caddy-config"}, res.SkippedVolumes)
	assert.Equal(t, []string{"redis-data", "searxng-data"}, res.Snapshot.Volumes)
	assert.Positive(t, res.Snapshot.SizeBytes)

	info, err := os.ReadFile(filepath.Join(dir, "backup-info.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "Skipped:  caddy-data, caddy-config")
	assert.Contains(t, string(info), "searxng/searxng:latest")
}

func TestBackupGeneratesName(t *testing.T) {
	cfg := newTestStack(t)
	op := NewOperator(cfg, newFakeRuntime(), &fakeCompose{})

	res, err := op.Backup(context.Background(), "")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{8}-\d{6}$`, res.Snapshot.Name)
	assert.NotEmpty(t, res.RunID)
}

func TestBackupExistingNameFailsWithoutMutation(t *testing.T) {
	cfg := newTestStack(t)
	rt := newFakeRuntime("redis-data")
	op := NewOperator(cfg, rt, &fakeCompose{})

	_, err := op.Backup(context.Background(), "nightly")
	require.NoError(t, err)

	archive := filepath.Join(cfg.BackupDir, "nightly", "redis-data.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("original"), 0644))
	before := len(rt.Calls())

	_, err = op.Backup(context.Background(), "nightly")
	require.ErrorIs(t, err, snapshot.ErrSnapshotExists)

	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.Len(t, rt.Calls(), before, "no volume should be touched")
}

func TestBackupRequiresComposeFile(t *testing.T) {
	cfg := newTestStack(t)
	require.NoError(t, os.Remove(cfg.ComposePath()))
	op := NewOperator(cfg, newFakeRuntime("redis-data"), &fakeCompose{})

	_, err := op.Backup(context.Background(), "no-compose")
	require.ErrorIs(t, err, snapshot.ErrComposeFileMissing)
	assertNoSnapshotDirs(t, cfg.BackupDir)
}

func TestBackupFailureLeavesNoPartialSnapshot(t *testing.T) {
	cfg := newTestStack(t)
	rt := newFakeRuntime("redis-data")
	rt.archiveErr = errArchive
	op := NewOperator(cfg, rt, &fakeCompose{})

	_, err := op.Backup(context.Background(), "partial")
	require.ErrorIs(t, err, errArchive)
	assertNoSnapshotDirs(t, cfg.BackupDir)
}

func TestBackupInvalidName(t *testing.T) {
	cfg := newTestStack(t)
	op := NewOperator(cfg, newFakeRuntime(), &fakeCompose{})

	_, err := op.Backup(context.Background(), "../etc")
	require.ErrorIs(t, err, snapshot.ErrInvalidName)
}

// assertNoSnapshotDirs allows only the lock file in the backup root.
func assertNoSnapshotDirs(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, e.IsDir(), "unexpected directory %s", e.Name())
		assert.True(t, strings.HasPrefix(e.Name(), "."), "unexpected entry %s", e.Name())
	}
}
