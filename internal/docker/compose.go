package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aelpxy/searxops/internal/logging"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/goccy/go-json"
)

// CommandRunner executes name with args inside dir and returns combined output.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Compose drives `docker compose` for a single project directory.
type Compose struct {
	dir         string
	composeFile string
	run         CommandRunner
}

func NewCompose(composePath string) *Compose {
	return &Compose{
		dir:         filepath.Dir(composePath),
		composeFile: composePath,
		run:         execRunner,
	}
}

// WithRunner swaps the process runner, mostly for tests.
func (c *Compose) WithRunner(run CommandRunner) *Compose {
	c.run = run
	return c
}

func (c *Compose) File() string {
	return c.composeFile
}

func (c *Compose) exec(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"compose", "-f", c.composeFile}, args...)
	log := logging.Component("compose")
	log.Debug().Strs("args", full).Str("dir", c.dir).Msg("running docker")

	out, err := c.run(ctx, c.dir, "docker", full...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return out, fmt.Errorf("docker compose %s: %w", args[0], err)
		}
		return out, fmt.Errorf("docker compose %s: %w: %s", args[0], err, msg)
	}
	return out, nil
}

type psEntry struct {
	ID      string `json:"ID"`
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
	Status  string `json:"Status"`
	Image   string `json:"Image"`
}

// Ps lists every service container of the project, stopped ones included.
func (c *Compose) Ps(ctx context.Context) ([]models.ServiceState, error) {
	out, err := c.exec(ctx, "ps", "--all", "--format", "json")
	if err != nil {
		return nil, err
	}
	return parsePs(out)
}

// parsePs accepts both the newline-delimited objects newer compose releases
// print and the single JSON array older ones produce.
func parsePs(out []byte) ([]models.ServiceState, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}

	var entries []psEntry
	if out[0] == '[' {
		if err := json.Unmarshal(out, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(out))
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var e psEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return nil, fmt.Errorf("failed to parse compose ps output: %w", err)
			}
			entries = append(entries, e)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	states := make([]models.ServiceState, 0, len(entries))
	for _, e := range entries {
		states = append(states, models.ServiceState{
			Name:    e.Name,
			Service: e.Service,
			State:   e.State,
			Health:  e.Health,
			Status:  e.Status,
			Image:   e.Image,
		})
	}
	return states, nil
}

func (c *Compose) Up(ctx context.Context, forceRecreate bool) error {
	args := []string{"up", "-d", "--remove-orphans"}
	if forceRecreate {
		args = append(args, "--force-recreate")
	}
	_, err := c.exec(ctx, args...)
	return err
}

func (c *Compose) Down(ctx context.Context) error {
	_, err := c.exec(ctx, "down")
	return err
}

func (c *Compose) Pull(ctx context.Context) error {
	_, err := c.exec(ctx, "pull", "--quiet")
	return err
}

// Build rebuilds the given services from scratch, pulling fresh base images.
func (c *Compose) Build(ctx context.Context, services []string) error {
	if len(services) == 0 {
		return nil
	}
	args := append([]string{"build", "--pull", "--no-cache"}, services...)
	_, err := c.exec(ctx, args...)
	return err
}

// BuildableServices reads the compose file and returns services that declare
// a build section.
func (c *Compose) BuildableServices() ([]string, error) {
	f, err := ParseComposeFile(c.composeFile)
	if err != nil {
		return nil, err
	}
	return f.BuildableServices(), nil
}
