package runtime

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrToolMissing = errors.New("required tool missing")

const (
	ToolDocker  = "docker"
	ToolCompose = "docker compose"
	ToolGit     = "git"
)

type ToolChecker struct {
	LookPath func(string) (string, error)
	Probe    func(ctx context.Context, name string, args ...string) error
}

func NewToolChecker() *ToolChecker {
	return &ToolChecker{
		LookPath: exec.LookPath,
		Probe:    versionProbe,
	}
}

// Require fails with ErrToolMissing naming every tool that is absent.
func (tc *ToolChecker) Require(ctx context.Context, tools ...string) error {
	var missing []string
	for _, tool := range tools {
		if err := tc.check(ctx, tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrToolMissing, strings.Join(missing, ", "))
	}
	return nil
}

func (tc *ToolChecker) check(ctx context.Context, tool string) error {
	switch tool {
	case ToolCompose:
		if _, err := tc.LookPath("docker"); err != nil {
			return err
		}
		return tc.Probe(ctx, "docker", "compose", "version")
	default:
		_, err := tc.LookPath(tool)
		return err
	}
}
