// Package stack implements backup, restore and deploy of the compose stack.
package stack

import (
	"context"

	"github.com/aelpxy/searxops/pkg/models"
)

// Runtime is the container-engine surface the operations need.
type Runtime interface {
	Ping(ctx context.Context) error
	VolumeExists(ctx context.Context, name string) (bool, error)
	ListVolumes(ctx context.Context) ([]string, error)
	CreateVolume(ctx context.Context, name string) error
	RemoveVolume(ctx context.Context, name string) error
	ArchiveVolume(ctx context.Context, volume, dir, fileName string) error
	ExtractVolume(ctx context.Context, volume, dir, fileName string) error
	ListContainers(ctx context.Context) ([]models.ContainerSummary, error)
	ListImages(ctx context.Context) ([]string, error)
	ContainerLogs(ctx context.Context, name string, tail int) ([]string, error)
	Exec(ctx context.Context, name string, cmd []string) (string, int, error)
	PruneImages(ctx context.Context) (models.PruneReport, error)
}

// Compose drives the stack's compose project.
type Compose interface {
	Ps(ctx context.Context) ([]models.ServiceState, error)
	Up(ctx context.Context, forceRecreate bool) error
	Down(ctx context.Context) error
	Pull(ctx context.Context) error
	Build(ctx context.Context, services []string) error
	BuildableServices() ([]string, error)
}

type GitSyncer interface {
	Sync(ctx context.Context, branch, remote, runID string) (*models.GitCommit, error)
}

type ToolChecker interface {
	Require(ctx context.Context, tools ...string) error
}

// Confirmer asks the operator before a destructive step.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

type ConfirmFunc func(prompt string) (bool, error)

func (f ConfirmFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// Reporter receives human-facing progress. The CLI renders it; tests ignore it.
type Reporter interface {
	Step(msg string)
	Detail(msg string)
	Warn(msg string)
	Waiting(attempt, total int)
}

type nopReporter struct{}

func (nopReporter) Step(string)      {}
func (nopReporter) Detail(string)    {}
func (nopReporter) Warn(string)      {}
func (nopReporter) Waiting(int, int) {}
