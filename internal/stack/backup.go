package stack

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aelpxy/searxops/internal/snapshot"
	"github.com/aelpxy/searxops/pkg/models"
)

type BackupResult struct {
	Snapshot       *models.Snapshot
	SkippedVolumes []string
	SkippedConfig  []string
	RunID          string
	Duration       time.Duration
}

// Backup snapshots the configured volumes and config files. An empty name
// gets a timestamp label.
func (o *Operator) Backup(ctx context.Context, name string) (*BackupResult, error) {
	l, err := o.acquire()
	if err != nil {
		return nil, err
	}
	defer l.Release()

	if name == "" {
		name = snapshot.GenerateName("", o.now())
	}
	return o.createSnapshot(ctx, name, o.newID())
}

// createSnapshot assumes the caller holds the lock.
func (o *Operator) createSnapshot(ctx context.Context, name, runID string) (*BackupResult, error) {
	start := o.now()
	log := o.log.With().Str("snapshot", name).Str("run_id", runID).Logger()

	draft, err := o.store.Begin(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := draft.Discard(); err != nil {
			log.Warn().Err(err).Str("dir", draft.Dir()).Msg("failed to remove staging directory")
		}
	}()

	if err := o.requireComposeFile(); err != nil {
		return nil, err
	}

	result := &BackupResult{RunID: runID}
	var archived []string

	o.reporter.Step("backing up volumes")
	for _, volume := range o.cfg.Volumes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		exists, err := o.runtime.VolumeExists(ctx, volume)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect volume %s: %w", volume, err)
		}
		if !exists {
			log.Warn().Str("volume", volume).Msg("volume not found, skipping")
			o.reporter.Warn(fmt.Sprintf("volume %s not found, skipping", volume))
			result.SkippedVolumes = append(result.SkippedVolumes, volume)
			continue
		}

		if err := o.runtime.ArchiveVolume(ctx, volume, draft.Dir(), snapshot.ArchiveName(volume)); err != nil {
			return nil, err
		}
		log.Info().Str("volume", volume).Msg("volume archived")
		o.reporter.Detail(volume)
		archived = append(archived, volume)
	}

	o.reporter.Step("copying configuration")
	copied, skipped, err := snapshot.Capture(o.configEntries(), draft.Dir())
	if err != nil {
		return nil, err
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("config file not found, skipping")
	}
	result.SkippedConfig = skipped

	host, _ := os.Hostname()
	manifest := models.SnapshotManifest{
		Name:           name,
		CreatedAt:      o.now().UTC(),
		Operator:       operatorName(),
		Host:           host,
		RunID:          runID,
		Version:        o.version,
		Volumes:        archived,
		SkippedVolumes: result.SkippedVolumes,
		ConfigFiles:    copied,
	}
	if err := snapshot.WriteMetadata(draft.Dir(), manifest, o.inventory(ctx)); err != nil {
		return nil, err
	}

	snap, err := draft.Commit()
	if err != nil {
		return nil, err
	}
	result.Snapshot = snap
	result.Duration = o.now().Sub(start)

	log.Info().
		Str("path", snap.Path).
		Int64("size_bytes", snap.SizeBytes).
		Strs("volumes", archived).
		Msg("snapshot created")
	return result, nil
}

// inventory is informational; listing failures are logged and left empty.
func (o *Operator) inventory(ctx context.Context) models.Inventory {
	var inv models.Inventory
	var err error

	if inv.Containers, err = o.runtime.ListContainers(ctx); err != nil {
		o.log.Warn().Err(err).Msg("failed to list containers for metadata")
	}
	if inv.Images, err = o.runtime.ListImages(ctx); err != nil {
		o.log.Warn().Err(err).Msg("failed to list images for metadata")
	}
	if inv.Volumes, err = o.runtime.ListVolumes(ctx); err != nil {
		o.log.Warn().Err(err).Msg("failed to list volumes for metadata")
	}
	return inv
}
