package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

type SystemProbe interface {
	DiskUsedPercent(ctx context.Context, path string) (float64, error)
	MemoryUsedPercent(ctx context.Context) (float64, error)
}

type hostProbe struct{}

// NewHostProbe reads usage from the local host via gopsutil.
func NewHostProbe() SystemProbe {
	return hostProbe{}
}

func (hostProbe) DiskUsedPercent(ctx context.Context, path string) (float64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("failed to read disk usage for %s: %w", path, err)
	}
	return usage.UsedPercent, nil
}

func (hostProbe) MemoryUsedPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory usage: %w", err)
	}
	return vm.UsedPercent, nil
}

type CachePinger interface {
	Ping(ctx context.Context) error
	Target() string
}

type execPinger struct {
	rt        Runtime
	container string
	cmd       []string
}

// NewExecPinger pings the cache by running its CLI inside the container.
func NewExecPinger(rt Runtime, container string, cmd []string) CachePinger {
	return &execPinger{rt: rt, container: container, cmd: cmd}
}

func (p *execPinger) Ping(ctx context.Context) error {
	out, code, err := p.rt.Exec(ctx, p.container, p.cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("ping exited with code %d: %s", code, out)
	}
	if !strings.Contains(strings.ToUpper(out), "PONG") {
		return fmt.Errorf("unexpected ping reply %q", out)
	}
	return nil
}

func (p *execPinger) Target() string {
	return "container " + p.container
}

type redisPinger struct {
	addr     string
	password string
	timeout  time.Duration
}

// NewRedisPinger talks RESP directly to a published cache port.
func NewRedisPinger(addr, password string, timeout time.Duration) CachePinger {
	return &redisPinger{addr: addr, password: password, timeout: timeout}
}

func (p *redisPinger) Ping(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:        p.addr,
		Password:    p.password,
		DialTimeout: p.timeout,
		ReadTimeout: p.timeout,
		MaxRetries:  -1,
	})
	defer client.Close()

	reply, err := client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected ping reply %q", reply)
	}
	return nil
}

func (p *redisPinger) Target() string {
	return p.addr
}
