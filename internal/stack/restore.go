package stack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/aelpxy/searxops/pkg/models"
)

type RestoreResult struct {
	Snapshot    *models.Snapshot
	Volumes     []string
	ConfigFiles []string
	Duration    time.Duration
}

// Restore replaces live config and volumes with the contents of a snapshot.
// Nothing is touched until confirm approves; a nil confirm declines.
func (o *Operator) Restore(ctx context.Context, name string, confirm Confirmer) (*RestoreResult, error) {
	snap, err := o.store.Open(name)
	if err != nil {
		return nil, err
	}

	volumes, err := restorableVolumes(snap)
	if err != nil {
		return nil, err
	}

	if confirm == nil {
		return nil, ErrAborted
	}
	prompt := fmt.Sprintf("restore snapshot %s? running containers will be stopped and volumes %v replaced", name, volumes)
	ok, err := confirm.Confirm(prompt)
	if err != nil {
		return nil, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return nil, ErrAborted
	}

	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	start := o.now()
	log := o.log.With().Str("snapshot", name).Logger()

	if err := o.stopIfRunning(ctx); err != nil {
		return nil, err
	}

	o.reporter.Step("restoring configuration")
	applied, err := snapshot.Apply(o.configEntries(), snap.Path)
	if err != nil {
		return nil, err
	}
	for _, f := range applied {
		o.reporter.Detail(f)
	}

	o.reporter.Step("restoring volumes")
	for _, volume := range volumes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := o.runtime.RemoveVolume(ctx, volume); err != nil {
			return nil, err
		}
		if err := o.runtime.CreateVolume(ctx, volume); err != nil {
			return nil, err
		}
		if err := o.runtime.ExtractVolume(ctx, volume, snap.Path, snapshot.ArchiveName(volume)); err != nil {
			return nil, err
		}
		log.Info().Str("volume", volume).Msg("volume restored")
		o.reporter.Detail(volume)
	}

	o.reporter.Step("starting stack")
	if err := o.compose.Up(ctx, false); err != nil {
		return nil, err
	}
	if err := o.waitReady(ctx); err != nil {
		return nil, err
	}

	log.Info().Strs("volumes", volumes).Strs("config", applied).Msg("snapshot restored")
	return &RestoreResult{
		Snapshot:    snap,
		Volumes:     volumes,
		ConfigFiles: applied,
		Duration:    o.now().Sub(start),
	}, nil
}

// restorableVolumes prefers the manifest's list but keeps only volumes whose
// archive is actually present.
func restorableVolumes(snap *models.Snapshot) ([]string, error) {
	var volumes []string
	for _, v := range snap.Volumes {
		if _, err := os.Stat(filepath.Join(snap.Path, snapshot.ArchiveName(v))); err == nil {
			volumes = append(volumes, v)
		}
	}
	if len(volumes) > 0 {
		return volumes, nil
	}
	return snapshot.ArchivedVolumes(snap.Path)
}

func (o *Operator) stopIfRunning(ctx context.Context) error {
	states, err := o.compose.Ps(ctx)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	o.reporter.Step("stopping stack")
	if err := o.compose.Down(ctx); err != nil {
		return err
	}
	o.log.Info().Int("containers", len(states)).Msg("stack stopped")
	return nil
}

func (o *Operator) waitReady(ctx context.Context) error {
	o.reporter.Step("waiting for services")
	return WaitReady(ctx, o.compose, WaitOptions{
		Services:  o.cfg.Containers,
		Attempts:  o.cfg.Ready.Attempts,
		Interval:  o.cfg.Ready.Interval,
		OnAttempt: o.reporter.Waiting,
	})
}
