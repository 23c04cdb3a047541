// Package snapshot manages snapshot directories under the backup root.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/constants"
	"github.com/aelpxy/searxops/internal/utils"
	"github.com/aelpxy/searxops/pkg/models"
)

var (
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidName      = errors.New("invalid snapshot name")
)

const nameTimeLayout = "20060102-150405"

// GenerateName returns a timestamp label, optionally prefixed ("deploy-20250101-120000").
func GenerateName(prefix string, t time.Time) string {
	label := t.Format(nameTimeLayout)
	if prefix == "" {
		return label
	}
	return prefix + "-" + label
}

type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) LockPath() string {
	return filepath.Join(s.root, constants.LockFileName)
}

func (s *Store) Exists(name string) (bool, error) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Draft is a snapshot being assembled in a temporary directory. It becomes
// visible under its final name only after Commit.
type Draft struct {
	store     *Store
	name      string
	dir       string
	committed bool
}

func (s *Store) Begin(name string) (*Draft, error) {
	if err := utils.ValidateSnapshotName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	exists, err := s.Exists(name)
	if err != nil {
		return nil, fmt.Errorf("failed to check snapshot %s: %w", name, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, s.Path(name))
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	dir, err := os.MkdirTemp(s.root, constants.TempSnapshotPrefix+name+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot staging directory: %w", err)
	}
	if err := os.Chmod(dir, 0755); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to prepare staging directory: %w", err)
	}

	return &Draft{store: s, name: name, dir: dir}, nil
}

func (d *Draft) Name() string {
	return d.name
}

func (d *Draft) Dir() string {
	return d.dir
}

// Commit renames the staging directory into place.
func (d *Draft) Commit() (*models.Snapshot, error) {
	if d.committed {
		return nil, fmt.Errorf("snapshot %s already committed", d.name)
	}

	final := d.store.Path(d.name)
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, final)
	}
	if err := os.Rename(d.dir, final); err != nil {
		return nil, fmt.Errorf("failed to finalize snapshot %s: %w", d.name, err)
	}
	d.committed = true

	return d.store.Open(d.name)
}

// Discard removes the staging directory. It is a no-op after Commit.
func (d *Draft) Discard() error {
	if d.committed {
		return nil
	}
	return os.RemoveAll(d.dir)
}

func (s *Store) Open(name string) (*models.Snapshot, error) {
	if !utils.IsValidSnapshotName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	path := s.Path(name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat snapshot %s: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrSnapshotNotFound, name)
	}

	return s.describe(name, path, info)
}

func (s *Store) describe(name, path string, info os.FileInfo) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		Name:      name,
		Path:      path,
		ModTime:   info.ModTime(),
		CreatedAt: info.ModTime(),
	}

	if manifest, err := ReadManifest(path); err == nil {
		snap.CreatedAt = manifest.CreatedAt
		snap.Volumes = manifest.Volumes
	} else {
		if created, ok := readInfoCreated(path); ok {
			snap.CreatedAt = created
		}
		volumes, err := ArchivedVolumes(path)
		if err != nil {
			return nil, err
		}
		snap.Volumes = volumes
	}

	size, err := utils.DirSize(path)
	if err != nil {
		return nil, fmt.Errorf("failed to measure snapshot %s: %w", name, err)
	}
	snap.SizeBytes = size

	return snap, nil
}

// List returns snapshots newest first. Dot entries and plain files are ignored.
func (s *Store) List() ([]models.Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Snapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	snapshots := []models.Snapshot{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		snap, err := s.describe(entry.Name(), s.Path(entry.Name()), info)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}

	sortNewestFirst(snapshots)
	return snapshots, nil
}

func sortNewestFirst(snapshots []models.Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		if !snapshots[i].ModTime.Equal(snapshots[j].ModTime) {
			return snapshots[i].ModTime.After(snapshots[j].ModTime)
		}
		return snapshots[i].Name > snapshots[j].Name
	})
}

// Prune keeps the keep most recently modified snapshots and deletes the rest,
// returning the removed names.
func (s *Store) Prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	snapshots, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var removed []string
	for _, snap := range snapshots[keep:] {
		if err := os.RemoveAll(snap.Path); err != nil {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", snap.Name, err)
		}
		removed = append(removed, snap.Name)
	}
	return removed, nil
}

// ArchivedVolumes lists volume names with a <volume>.tar.gz archive in dir.
func ArchivedVolumes(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+constants.ArchiveSuffix))
	if err != nil {
		return nil, err
	}

	volumes := make([]string, 0, len(matches))
	for _, m := range matches {
		volumes = append(volumes, strings.TrimSuffix(filepath.Base(m), constants.ArchiveSuffix))
	}
	sort.Strings(volumes)
	return volumes, nil
}

func ArchiveName(volume string) string {
	return volume + constants.ArchiveSuffix
}
