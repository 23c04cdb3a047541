package stack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aelpxy/searxops/internal/config"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	mu         sync.Mutex
	volumes    map[string]bool
	archiveErr error
	calls      []string
	pruned     models.PruneReport
}

func newFakeRuntime(volumes ...string) *fakeRuntime {
	rt := &fakeRuntime{volumes: map[string]bool{}}
	for _, v := range volumes {
		rt.volumes[v] = true
	}
	return rt
}

func (f *fakeRuntime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRuntime) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRuntime) Ping(context.Context) error { return nil }

func (f *fakeRuntime) VolumeExists(_ context.Context, name string) (bool, error) {
	return f.volumes[name], nil
}

func (f *fakeRuntime) ListVolumes(context.Context) ([]string, error) {
	var out []string
	for v := range f.volumes {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeRuntime) CreateVolume(_ context.Context, name string) error {
	f.record("create " + name)
	f.volumes[name] = true
	return nil
}

func (f *fakeRuntime) RemoveVolume(_ context.Context, name string) error {
	f.record("remove " + name)
	delete(f.volumes, name)
	return nil
}

func (f *fakeRuntime) ArchiveVolume(_ context.Context, volume, dir, fileName string) error {
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.record("archive " + volume)
	return os.WriteFile(filepath.Join(dir, fileName), []byte("archive:"+volume), 0644)
}

func (f *fakeRuntime) ExtractVolume(_ context.Context, volume, dir, fileName string) error {
	if _, err := os.Stat(filepath.Join(dir, fileName)); err != nil {
		return err
	}
	f.record("extract " + volume)
	return nil
}

func (f *fakeRuntime) ListContainers(context.Context) ([]models.ContainerSummary, error) {
	return []models.ContainerSummary{{ID: "abc123", Name: "searxng", Image: "searxng/searxng:latest", Status: "Up 2 hours"}}, nil
}

func (f *fakeRuntime) ListImages(context.Context) ([]string, error) {
	return []string{"searxng/searxng:latest"}, nil
}

func (f *fakeRuntime) ContainerLogs(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeRuntime) Exec(context.Context, string, []string) (string, int, error) {
	return "PONG", 0, nil
}

func (f *fakeRuntime) PruneImages(context.Context) (models.PruneReport, error) {
	f.record("prune")
	return f.pruned, nil
}

type fakeCompose struct {
	states    []models.ServiceState
	buildable []string
	calls     []string
	psCalls   int
}

func readyStates() []models.ServiceState {
	return []models.ServiceState{
		{Name: "searxng", Service: "searxng", State: "running", Health: "healthy", Status: "Up 5 seconds (healthy)"},
		{Name: "redis", Service: "redis", State: "running", Status: "Up 5 seconds"},
		{Name: "caddy", Service: "caddy", State: "running", Status: "Up 5 seconds"},
	}
}

func (f *fakeCompose) Ps(context.Context) ([]models.ServiceState, error) {
	f.psCalls++
	return f.states, nil
}

func (f *fakeCompose) Up(_ context.Context, forceRecreate bool) error {
	if forceRecreate {
		f.calls = append(f.calls, "up --force-recreate")
	} else {
		f.calls = append(f.calls, "up")
	}
	return nil
}

func (f *fakeCompose) Down(context.Context) error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeCompose) Pull(context.Context) error {
	f.calls = append(f.calls, "pull")
	return nil
}

func (f *fakeCompose) Build(_ context.Context, services []string) error {
	f.calls = append(f.calls, "build")
	return nil
}

func (f *fakeCompose) BuildableServices() ([]string, error) {
	return f.buildable, nil
}

type fakeGit struct {
	commit *models.GitCommit
	err    error
	called bool
}

func (f *fakeGit) Sync(context.Context, string, string, string) (*models.GitCommit, error) {
	f.called = true
	return f.commit, f.err
}

type fakeTools struct {
	missing error
}

func (f fakeTools) Require(context.Context, ...string) error {
	return f.missing
}

var errArchive = errors.New("tar failed")

// newTestStack lays out a stack directory with a compose file and settings.
func newTestStack(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.StackDir = dir
	cfg.BackupDir = "backups"
	cfg.Ready.Attempts = 3
	cfg.Ready.Interval = time.Millisecond
	cfg.LockTimeout = time.Second
	require.NoError(t, cfg.Resolve())

	writeFile(t, filepath.Join(dir, "docker-compose.yaml"), "services:\n  searxng:\n    image: searxng/searxng\n")
	writeFile(t, filepath.Join(dir, "searxng", "settings.yml"), "use_default_settings: true\n")
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
