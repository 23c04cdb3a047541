package stack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yes() Confirmer {
	return ConfirmFunc(func(string) (bool, error) { return true, nil })
}

func no() Confirmer {
	return ConfirmFunc(func(string) (bool, error) { return false, nil })
}

func seedSnapshot(t *testing.T, op *Operator, name string) {
	t.Helper()
	_, err := op.Backup(context.Background(), name)
	require.NoError(t, err)
}

func TestRestoreDeclinedChangesNothing(t *testing.T) {
	cfg := newTestStack(t)
	rt := newFakeRuntime("redis-data", "searxng-data")
	compose := &fakeCompose{states: readyStates()}
	op := NewOperator(cfg, rt, compose)
	seedSnapshot(t, op, "good")

	settings := filepath.Join(cfg.StackDir, "searxng", "settings.yml")
	writeFile(t, settings, "edited after backup\n")
	callsBefore := len(rt.Calls())

	_, err := op.Restore(context.Background(), "good", no())
	require.ErrorIs(t, err, ErrAborted)

	assert.Empty(t, compose.calls)
	assert.Zero(t, compose.psCalls)
	assert.Len(t, rt.Calls(), callsBefore)
	data, err := os.ReadFile(settings)
	require.NoError(t, err)
	assert.Equal(t, "edited after backup\n", string(data))

	_, err = op.Restore(context.Background(), "good", nil)
	require.ErrorIs(t, err, ErrAborted)
}

func TestRestoreNotFound(t *testing.T) {
	cfg := newTestStack(t)
	op := NewOperator(cfg, newFakeRuntime(), &fakeCompose{})

	_, err := op.Restore(context.Background(), "missing", yes())
	require.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
}

func TestRestoreReplacesConfigAndVolumes(t *testing.T) {
	cfg := newTestStack(t)
	rt := newFakeRuntime("redis-data", "searxng-data")
	compose := &fakeCompose{states: readyStates()}
	op := NewOperator(cfg, rt, compose)
	seedSnapshot(t, op, "good")

	settingsDir := filepath.Join(cfg.StackDir, "searxng")
	writeFile(t, filepath.Join(settingsDir, "settings.yml"), "broken\n")
	writeFile(t, filepath.Join(settingsDir, "extra.yml"), "stray\n")

	var prompt string
	res, err := op.Restore(context.Background(), "good", ConfirmFunc(func(p string) (bool, error) {
		prompt = p
		return true, nil
	}))
	require.NoError(t, err)
	assert.Contains(t, prompt, "good")

	assert.Equal(t, []string{"redis-data", "searxng-data"}, res.Volumes)
	assert.Equal(t, []string{"down", "up"}, compose.calls)

	calls := rt.Calls()
	assert.Subset(t, calls, []string{
		"remove redis-data", "create redis-data", "extract redis-data",
		"remove searxng-data", "create searxng-data", "extract searxng-data",
	})

	data, err := os.ReadFile(filepath.Join(settingsDir, "settings.yml"))
	require.NoError(t, err)
	assert.Equal(t, "use_default_settings: true\n", string(data))
	assert.NoFileExists(t, filepath.Join(settingsDir, "extra.yml"))
}

func TestRestoreSkipsDownWhenStopped(t *testing.T) {
	cfg := newTestStack(t)
	compose := &fakeCompose{}
	op := NewOperator(cfg, newFakeRuntime("redis-data"), compose)
	seedSnapshot(t, op, "good")

	compose.states = nil
	cfg.Containers = nil

	_, err := op.Restore(context.Background(), "good", yes())
	require.NoError(t, err)
	assert.Equal(t, []string{"up"}, compose.calls)
}

func TestRestoreNotReady(t *testing.T) {
	cfg := newTestStack(t)
	compose := &fakeCompose{states: []models.ServiceState{
		{Name: "searxng", Service: "searxng", State: "running", Health: "starting"},
	}}
	op := NewOperator(cfg, newFakeRuntime("redis-data"), compose)
	seedSnapshot(t, op, "good")

	_, err := op.Restore(context.Background(), "good", yes())
	require.ErrorIs(t, err, ErrNotReady)
}

func TestRestoreConfirmError(t *testing.T) {
	cfg := newTestStack(t)
	compose := &fakeCompose{}
	op := NewOperator(cfg, newFakeRuntime(), compose)
	seedSnapshot(t, op, "good")

	boom := errors.New("tty closed")
	_, err := op.Restore(context.Background(), "good", ConfirmFunc(func(string) (bool, error) {
		return false, boom
	}))
	require.ErrorIs(t, err, boom)
	assert.Empty(t, compose.calls)
}
