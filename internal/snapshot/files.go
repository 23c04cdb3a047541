package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrComposeFileMissing = errors.New("compose file not found")

// ConfigEntry maps a live config file or directory to its name inside a
// snapshot.
type ConfigEntry struct {
	Name     string
	Live     string
	Required bool
}

// Capture copies live config into snapDir. Missing optional entries are
// returned as skipped.
func Capture(entries []ConfigEntry, snapDir string) (copied, skipped []string, err error) {
	for _, e := range entries {
		if e.Name == "" || e.Live == "" {
			continue
		}
		ok, err := copyEntry(e.Live, filepath.Join(snapDir, e.Name))
		if err != nil {
			return copied, skipped, fmt.Errorf("failed to copy %s: %w", e.Name, err)
		}
		if !ok {
			if e.Required {
				return copied, skipped, fmt.Errorf("%w: %s", ErrComposeFileMissing, e.Live)
			}
			skipped = append(skipped, e.Name)
			continue
		}
		copied = append(copied, e.Name)
	}
	return copied, skipped, nil
}

// Apply copies config stored in snapDir over the live files. Directories
// are replaced in full. Entries absent from the snapshot are left alone.
func Apply(entries []ConfigEntry, snapDir string) ([]string, error) {
	var applied []string
	for _, e := range entries {
		if e.Name == "" || e.Live == "" {
			continue
		}
		ok, err := copyEntry(filepath.Join(snapDir, e.Name), e.Live)
		if err != nil {
			return applied, fmt.Errorf("failed to restore %s: %w", e.Name, err)
		}
		if ok {
			applied = append(applied, e.Name)
		}
	}
	return applied, nil
}

// copyEntry reports false when src does not exist.
func copyEntry(src, dst string) (bool, error) {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	if info.IsDir() {
		if err := os.RemoveAll(dst); err != nil {
			return false, err
		}
		return true, CopyDir(src, dst)
	}
	return true, CopyFile(src, dst, info.Mode().Perm())
}

func CopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return CopyFile(path, target, info.Mode().Perm())
		default:
			return nil
		}
	})
}
