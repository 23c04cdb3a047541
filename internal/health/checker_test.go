package health

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aelpxy/searxops/internal/config"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	pingErr    error
	containers []models.ContainerSummary
	volumes    map[string]bool
	logs       map[string][]string
	execOut    string
	execCode   int
}

func healthyRuntime() *fakeRuntime {
	return &fakeRuntime{
		containers: []models.ContainerSummary{
			{Name: "searxng", Status: "Up 3 minutes (healthy)"},
			{Name: "redis", Status: "Up 3 minutes"},
			{Name: "caddy", Status: "Up 3 minutes"},
		},
		volumes: map[string]bool{"caddy-data": true, "caddy-config": true, "redis-data": true, "searxng-data": true},
		logs:    map[string][]string{},
		execOut: "PONG",
	}
}

func (f *fakeRuntime) Ping(context.Context) error { return f.pingErr }

func (f *fakeRuntime) ListContainers(context.Context) ([]models.ContainerSummary, error) {
	if f.pingErr != nil {
		return nil, f.pingErr
	}
	return f.containers, nil
}

func (f *fakeRuntime) VolumeExists(_ context.Context, name string) (bool, error) {
	return f.volumes[name], nil
}

func (f *fakeRuntime) ContainerLogs(_ context.Context, name string, _ int) ([]string, error) {
	return f.logs[name], nil
}

func (f *fakeRuntime) Exec(context.Context, string, []string) (string, int, error) {
	return f.execOut, f.execCode, nil
}

type fakeSystem struct {
	disk, memory float64
}

func (f fakeSystem) DiskUsedPercent(context.Context, string) (float64, error) { return f.disk, nil }
func (f fakeSystem) MemoryUsedPercent(context.Context) (float64, error)       { return f.memory, nil }

func okHTTP(context.Context, string, time.Duration) (int, error) { return 200, nil }

func okDial(context.Context, string, time.Duration) error { return nil }

func newTestChecker(rt *fakeRuntime, ci bool, opts ...Option) *Checker {
	cfg := config.Default()
	cfg.StackDir = "/srv/searxng"
	cfg.Health.CIMode = ci
	base := []Option{
		WithSystemProbe(fakeSystem{disk: 40, memory: 55}),
		WithHTTPProbe(okHTTP),
		WithDialProbe(okDial),
	}
	return NewChecker(cfg, rt, append(base, opts...)...)
}

func checkByName(t *testing.T, r *models.HealthReport, name string) models.HealthCheck {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not in report", name)
	return models.HealthCheck{}
}

func TestFullHealthy(t *testing.T) {
	report, err := newTestChecker(healthyRuntime(), false).Run(context.Background(), ModeFull)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Total)
	assert.Equal(t, 7, report.Passed())
	assert.Zero(t, report.Critical)
	assert.Zero(t, report.Warnings)
	assert.Equal(t, models.ExitHealthy, report.ExitCode())

	names := make([]string, 0, len(report.Checks))
	for _, c := range report.Checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{CheckDaemon, CheckContainers, CheckVolumes, CheckConnectivity, CheckDisk, CheckMemory, CheckLogs}, names)
}

func TestFullWarningsOnly(t *testing.T) {
	tests := []struct {
		name string
		ci   bool
		want int
	}{
		{"interactive", false, models.ExitWarnings},
		{"ci mode", true, models.ExitHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := healthyRuntime()
			delete(rt.volumes, "caddy-data")
			checker := newTestChecker(rt, tt.ci, WithSystemProbe(fakeSystem{disk: 95, memory: 20}))

			report, err := checker.Run(context.Background(), ModeFull)
			require.NoError(t, err)
			assert.Zero(t, report.Critical)
			assert.Equal(t, 2, report.Warnings)
			assert.Equal(t, tt.want, report.ExitCode())

			vol := checkByName(t, report, CheckVolumes)
			assert.Equal(t, models.HealthWarn, vol.Status)
			assert.Contains(t, vol.Details, "caddy-data: missing")
		})
	}
}

func TestFullCriticalBeatsCIMode(t *testing.T) {
	rt := healthyRuntime()
	rt.containers[2].Status = "Exited (1) 2 minutes ago"

	report, err := newTestChecker(rt, true).Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Critical)
	assert.Equal(t, models.ExitCritical, report.ExitCode())

	containers := checkByName(t, report, CheckContainers)
	assert.Equal(t, models.HealthFail, containers.Status)
	assert.Contains(t, containers.Details, "caddy: Exited (1) 2 minutes ago")
}

func TestDaemonDownDoesNotShortCircuit(t *testing.T) {
	rt := healthyRuntime()
	rt.pingErr = errors.New("connection refused")

	report, err := newTestChecker(rt, false).Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Len(t, report.Checks, 7)
	assert.Equal(t, 2, report.Critical)
	assert.Equal(t, models.ExitCritical, report.ExitCode())
}

func TestQuickMode(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeRuntime)
		want   int
	}{
		{"all up", func(*fakeRuntime) {}, 0},
		{"daemon down", func(rt *fakeRuntime) { rt.pingErr = errors.New("down") }, 1},
		{"redis missing", func(rt *fakeRuntime) { rt.containers = rt.containers[:1] }, 1},
		{"caddy restarting", func(rt *fakeRuntime) { rt.containers[2].Status = "Restarting (1) 5 seconds ago" }, 1},
		{"warnings ignored", func(rt *fakeRuntime) { rt.volumes = nil }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := healthyRuntime()
			tt.mutate(rt)

			report, err := newTestChecker(rt, false).Run(context.Background(), ModeQuick)
			require.NoError(t, err)
			assert.Len(t, report.Checks, 2)
			assert.Equal(t, tt.want, report.ExitCode())
		})
	}
}

func TestUnknownMode(t *testing.T) {
	_, err := newTestChecker(healthyRuntime(), false).Run(context.Background(), "deep")
	require.Error(t, err)
}

func TestConnectivity(t *testing.T) {
	var dialed []string
	dial := func(_ context.Context, addr string, _ time.Duration) error {
		dialed = append(dialed, addr)
		if strings.HasSuffix(addr, ":443") {
			return errors.New("refused")
		}
		return nil
	}

	rt := healthyRuntime()
	rt.execOut = "Could not connect"
	rt.execCode = 1
	checker := newTestChecker(rt, false, WithDialProbe(dial))

	report, err := checker.Run(context.Background(), ModeFull)
	require.NoError(t, err)

	conn := checkByName(t, report, CheckConnectivity)
	assert.Equal(t, models.HealthWarn, conn.Status)
	assert.Equal(t, []string{"127.0.0.1:80", "127.0.0.1:443"}, dialed)
	assert.Contains(t, conn.Details, "proxy port 443/tcp: not listening")
	assert.Contains(t, conn.Details, "proxy port 80/tcp: listening")
	assert.Contains(t, strings.Join(conn.Details, "\n"), "cache container redis")
}

func TestConnectivityHTTPFailure(t *testing.T) {
	badHTTP := func(context.Context, string, time.Duration) (int, error) {
		return 502, fmt.Errorf("returned status 502")
	}
	report, err := newTestChecker(healthyRuntime(), false, WithHTTPProbe(badHTTP)).Run(context.Background(), ModeFull)
	require.NoError(t, err)
	assert.Equal(t, models.HealthWarn, checkByName(t, report, CheckConnectivity).Status)
}

func TestLogScan(t *testing.T) {
	rt := healthyRuntime()
	var noisy []string
	for i := 0; i < 6; i++ {
		noisy = append(noisy, fmt.Sprintf("2025-01-01 ERROR engine %d timed out", i))
	}
	rt.logs["searxng"] = noisy
	rt.logs["caddy"] = []string{
		"X-Forwarded-For nor X-Real-IP header is set! error",
		"error one", "error two", "error three", "error four", "error five",
	}

	report, err := newTestChecker(rt, false).Run(context.Background(), ModeFull)
	require.NoError(t, err)

	logs := checkByName(t, report, CheckLogs)
	assert.Equal(t, models.HealthWarn, logs.Status)
	assert.Contains(t, logs.Details, "searxng: 6 error lines in last 100")
	assert.Contains(t, logs.Details, "caddy: 5 error lines")
}

func TestCountErrorLines(t *testing.T) {
	lines := []string{
		"INFO starting",
		"Panic: runtime error",
		"fatal: something",
		"limiter.toml not found, error ignored",
		"Exception in thread",
	}
	assert.Equal(t, 3, CountErrorLines(lines, []string{"error", "fatal", "panic", "exception"}, []string{"limiter.toml"}))
	assert.Zero(t, CountErrorLines(nil, []string{"error"}, nil))
}

func TestCacheAddrUsesRedisPinger(t *testing.T) {
	cfg := config.Default()
	cfg.Health.CacheAddr = "127.0.0.1:6379"
	checker := NewChecker(cfg, healthyRuntime())
	assert.Equal(t, "127.0.0.1:6379", checker.cache.Target())
}
