// Package health runs the stack diagnostics behind `searxops health-check`.
package health

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/config"
	"github.com/aelpxy/searxops/internal/constants"
	"github.com/aelpxy/searxops/internal/logging"
	"github.com/aelpxy/searxops/internal/utils"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/docker/go-connections/nat"
)

const (
	ModeQuick = "quick"
	ModeFull  = "full"
)

const (
	CheckDaemon       = "docker daemon"
	CheckContainers   = "containers"
	CheckVolumes      = "volumes"
	CheckConnectivity = "connectivity"
	CheckDisk         = "disk"
	CheckMemory       = "memory"
	CheckLogs         = "logs"
)

// Runtime is the read-only container surface the checks use.
type Runtime interface {
	Ping(ctx context.Context) error
	ListContainers(ctx context.Context) ([]models.ContainerSummary, error)
	VolumeExists(ctx context.Context, name string) (bool, error)
	ContainerLogs(ctx context.Context, name string, tail int) ([]string, error)
	Exec(ctx context.Context, name string, cmd []string) (string, int, error)
}

type HTTPProbe func(ctx context.Context, url string, timeout time.Duration) (int, error)

type DialProbe func(ctx context.Context, addr string, timeout time.Duration) error

type Checker struct {
	cfg        config.HealthConfig
	stackDir   string
	containers []string
	volumes    []string

	rt     Runtime
	system SystemProbe
	http   HTTPProbe
	dial   DialProbe
	cache  CachePinger
}

type Option func(*Checker)

func WithSystemProbe(p SystemProbe) Option {
	return func(c *Checker) { c.system = p }
}

func WithHTTPProbe(p HTTPProbe) Option {
	return func(c *Checker) { c.http = p }
}

func WithDialProbe(p DialProbe) Option {
	return func(c *Checker) { c.dial = p }
}

func WithCachePinger(p CachePinger) Option {
	return func(c *Checker) { c.cache = p }
}

func NewChecker(cfg *config.Config, rt Runtime, opts ...Option) *Checker {
	c := &Checker{
		cfg:        cfg.Health,
		stackDir:   cfg.StackDir,
		containers: cfg.Containers,
		volumes:    cfg.Volumes,
		rt:         rt,
		system:     NewHostProbe(),
		http:       utils.ProbeHTTP,
		dial:       utils.ProbeTCP,
	}

	if cfg.Health.CacheAddr != "" {
		c.cache = NewRedisPinger(cfg.Health.CacheAddr, cfg.Health.CachePassword, constants.PortCheckTimeout)
	} else if cfg.Health.CacheContainer != "" {
		c.cache = NewExecPinger(rt, cfg.Health.CacheContainer, cfg.Health.CachePingCommand)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the checks for mode in order. A failing check never stops
// the ones after it.
func (c *Checker) Run(ctx context.Context, mode string) (*models.HealthReport, error) {
	var steps []func(context.Context) models.HealthCheck
	switch mode {
	case ModeQuick:
		steps = []func(context.Context) models.HealthCheck{c.checkDaemon, c.checkContainers}
	case ModeFull, "":
		mode = ModeFull
		steps = []func(context.Context) models.HealthCheck{
			c.checkDaemon,
			c.checkContainers,
			c.checkVolumes,
			c.checkConnectivity,
			c.checkDisk,
			c.checkMemory,
			c.checkLogs,
		}
	default:
		return nil, fmt.Errorf("unknown health-check mode %q (use quick, full or help)", mode)
	}

	log := logging.Component("health")
	report := &models.HealthReport{Mode: mode, CIMode: c.cfg.CIMode}
	for _, step := range steps {
		check := step(ctx)
		report.Checks = append(report.Checks, check)
		if check.Passed() {
			continue
		}
		if check.Severity == models.SeverityCritical {
			report.Critical++
		} else {
			report.Warnings++
		}
		log.Debug().Str("check", check.Name).Strs("details", check.Details).Msg("check failed")
	}
	report.Total = len(report.Checks)
	return report, nil
}

func newCheck(name string, severity models.Severity) models.HealthCheck {
	return models.HealthCheck{Name: name, Severity: severity, Status: models.HealthOK}
}

func fail(check *models.HealthCheck, format string, args ...any) {
	if check.Severity == models.SeverityCritical {
		check.Status = models.HealthFail
	} else {
		check.Status = models.HealthWarn
	}
	check.Details = append(check.Details, fmt.Sprintf(format, args...))
}

func pass(check *models.HealthCheck, format string, args ...any) {
	check.Details = append(check.Details, fmt.Sprintf(format, args...))
}

func (c *Checker) checkDaemon(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckDaemon, models.SeverityCritical)
	if err := c.rt.Ping(ctx); err != nil {
		fail(&check, "daemon not responding: %v", err)
		return check
	}
	if named, ok := c.rt.(interface{ RuntimeName() string }); ok {
		pass(&check, "%s daemon running", named.RuntimeName())
	} else {
		pass(&check, "daemon running")
	}
	return check
}

func (c *Checker) checkContainers(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckContainers, models.SeverityCritical)

	list, err := c.rt.ListContainers(ctx)
	if err != nil {
		fail(&check, "cannot list containers: %v", err)
		return check
	}
	byName := make(map[string]models.ContainerSummary, len(list))
	for _, cont := range list {
		byName[cont.Name] = cont
	}

	for _, name := range c.containers {
		cont, ok := byName[name]
		switch {
		case !ok:
			fail(&check, "%s: not found", name)
		case !strings.Contains(cont.Status, "Up"):
			fail(&check, "%s: %s", name, cont.Status)
		default:
			pass(&check, "%s: %s", name, cont.Status)
		}
	}
	return check
}

func (c *Checker) checkVolumes(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckVolumes, models.SeverityWarning)
	for _, v := range c.volumes {
		exists, err := c.rt.VolumeExists(ctx, v)
		switch {
		case err != nil:
			fail(&check, "%s: %v", v, err)
		case !exists:
			fail(&check, "%s: missing", v)
		default:
			pass(&check, "%s: present", v)
		}
	}
	return check
}

func (c *Checker) checkConnectivity(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckConnectivity, models.SeverityWarning)

	if c.cfg.AppURL != "" {
		code, err := c.http(ctx, c.cfg.AppURL, constants.HTTPCheckTimeout)
		if err != nil {
			fail(&check, "app %s: %v", c.cfg.AppURL, err)
		} else {
			pass(&check, "app %s: %d", c.cfg.AppURL, code)
		}
	}

	if c.cache != nil {
		if err := c.cache.Ping(ctx); err != nil {
			fail(&check, "cache %s: %v", c.cache.Target(), err)
		} else {
			pass(&check, "cache %s: PONG", c.cache.Target())
		}
	}

	for _, spec := range c.cfg.ProxyPorts {
		proto, portStr := nat.SplitProtoPort(spec)
		port, err := nat.NewPort(proto, portStr)
		if err != nil {
			fail(&check, "proxy port %s: %v", spec, err)
			continue
		}
		if port.Proto() != "tcp" {
			pass(&check, "proxy port %s: not probed", port)
			continue
		}
		addr := net.JoinHostPort("127.0.0.1", port.Port())
		if err := c.dial(ctx, addr, constants.PortCheckTimeout); err != nil {
			fail(&check, "proxy port %s: not listening", port)
		} else {
			pass(&check, "proxy port %s: listening", port)
		}
	}
	return check
}

func (c *Checker) checkDisk(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckDisk, models.SeverityWarning)
	used, err := c.system.DiskUsedPercent(ctx, c.stackDir)
	switch {
	case err != nil:
		fail(&check, "%v", err)
	case used >= c.cfg.DiskThreshold:
		fail(&check, "%.1f%% used (threshold %.0f%%)", used, c.cfg.DiskThreshold)
	default:
		pass(&check, "%.1f%% used", used)
	}
	return check
}

func (c *Checker) checkMemory(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckMemory, models.SeverityWarning)
	used, err := c.system.MemoryUsedPercent(ctx)
	switch {
	case err != nil:
		fail(&check, "%v", err)
	case used >= c.cfg.MemoryThreshold:
		fail(&check, "%.1f%% used (threshold %.0f%%)", used, c.cfg.MemoryThreshold)
	default:
		pass(&check, "%.1f%% used", used)
	}
	return check
}

func (c *Checker) checkLogs(ctx context.Context) models.HealthCheck {
	check := newCheck(CheckLogs, models.SeverityWarning)
	for _, name := range c.containers {
		lines, err := c.rt.ContainerLogs(ctx, name, c.cfg.LogTail)
		if err != nil {
			fail(&check, "%s: %v", name, err)
			continue
		}
		n := CountErrorLines(lines, c.cfg.LogKeywords, c.cfg.LogBenign)
		if n > c.cfg.LogThreshold {
			fail(&check, "%s: %d error lines in last %d", name, n, c.cfg.LogTail)
		} else {
			pass(&check, "%s: %d error lines", name, n)
		}
	}
	return check
}

// CountErrorLines counts lines containing any keyword, ignoring case, that
// contain none of the benign phrases.
func CountErrorLines(lines, keywords, benign []string) int {
	lowerKeywords := lowerAll(keywords)
	lowerBenign := lowerAll(benign)

	n := 0
	for _, line := range lines {
		l := strings.ToLower(line)
		if !containsAny(l, lowerKeywords) || containsAny(l, lowerBenign) {
			continue
		}
		n++
	}
	return n
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
