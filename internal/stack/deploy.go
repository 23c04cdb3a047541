package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/aelpxy/searxops/internal/runtime"
	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/aelpxy/searxops/pkg/models"
)

type DeployOptions struct {
	ForceRebuild bool
	SkipGit      bool
	Branch       string
	Remote       string
}

type DeployResult struct {
	RunID     string
	Commit    *models.GitCommit
	Snapshot  *models.Snapshot
	Rebuilt   []string
	Reclaimed models.PruneReport
	Removed   []string
	Duration  time.Duration
}

func (o *Operator) Deploy(ctx context.Context, opts DeployOptions) (*DeployResult, error) {
	if opts.Branch == "" {
		opts.Branch = o.cfg.Git.Branch
	}
	if opts.Remote == "" {
		opts.Remote = o.cfg.Git.Remote
	}

	start := o.now()
	result := &DeployResult{RunID: o.newID()}
	log := o.log.With().Str("run_id", result.RunID).Logger()

	if o.tools != nil {
		required := []string{runtime.ToolDocker, runtime.ToolCompose}
		if !opts.SkipGit {
			required = append(required, runtime.ToolGit)
		}
		o.reporter.Step("checking required tools")
		if err := o.tools.Require(ctx, required...); err != nil {
			return nil, err
		}
	}

	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	if !opts.SkipGit {
		if o.git == nil {
			return nil, fmt.Errorf("git sync requested but not configured")
		}
		o.reporter.Step(fmt.Sprintf("syncing %s/%s", opts.Remote, opts.Branch))
		commit, err := o.git.Sync(ctx, opts.Branch, opts.Remote, result.RunID)
		if err != nil {
			return nil, err
		}
		result.Commit = commit
		o.reporter.Detail(fmt.Sprintf("%s %s", commit.ShortHash, commit.Subject))
	}

	o.reporter.Step("creating pre-deploy snapshot")
	backup, err := o.createSnapshot(ctx, snapshot.GenerateName("deploy", o.now()), result.RunID)
	if err != nil {
		return nil, err
	}
	result.Snapshot = backup.Snapshot

	o.reporter.Step("pulling images")
	if err := o.compose.Pull(ctx); err != nil {
		return nil, err
	}

	if opts.ForceRebuild {
		services, err := o.compose.BuildableServices()
		if err != nil {
			return nil, err
		}
		if len(services) == 0 {
			log.Info().Msg("no services with a build section, skipping rebuild")
			o.reporter.Detail("no buildable services")
		} else {
			o.reporter.Step("rebuilding images without cache")
			if err := o.compose.Build(ctx, services); err != nil {
				return nil, err
			}
			result.Rebuilt = services
		}
	}

	if err := o.stopIfRunning(ctx); err != nil {
		return nil, err
	}
	o.reporter.Step("starting stack")
	if err := o.compose.Up(ctx, opts.ForceRebuild); err != nil {
		return nil, err
	}
	if err := o.waitReady(ctx); err != nil {
		return nil, err
	}

	o.reporter.Step("cleaning up")
	reclaimed, err := o.runtime.PruneImages(ctx)
	if err != nil {
		return nil, err
	}
	result.Reclaimed = reclaimed

	removed, err := o.store.Prune(o.cfg.KeepSnapshots)
	if err != nil {
		return nil, err
	}
	result.Removed = removed
	result.Duration = o.now().Sub(start)

	log.Info().
		Str("snapshot", result.Snapshot.Name).
		Int("images_pruned", reclaimed.ImagesDeleted).
		Strs("snapshots_removed", removed).
		Dur("duration", result.Duration).
		Msg("deploy finished")
	return result, nil
}
