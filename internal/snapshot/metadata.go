package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aelpxy/searxops/internal/constants"
	"github.com/aelpxy/searxops/internal/utils"
	"github.com/aelpxy/searxops/pkg/models"
	"github.com/goccy/go-json"
)

const infoCreatedPrefix = "Created:"

// WriteMetadata writes backup-info.txt and manifest.json into dir.
func WriteMetadata(dir string, manifest models.SnapshotManifest, inv models.Inventory) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := utils.AtomicWriteFile(filepath.Join(dir, constants.SnapshotManifestFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := utils.AtomicWriteFile(filepath.Join(dir, constants.SnapshotInfoFile), []byte(renderInfo(manifest, inv)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", constants.SnapshotInfoFile, err)
	}
	return nil
}

func renderInfo(m models.SnapshotManifest, inv models.Inventory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SearXNG stack snapshot\n")
	fmt.Fprintf(&b, "Name:     %s\n", m.Name)
	fmt.Fprintf(&b, "%s  %s\n", infoCreatedPrefix, m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Operator: %s\n", m.Operator)
	fmt.Fprintf(&b, "Host:     %s\n", m.Host)
	fmt.Fprintf(&b, "Run ID:   %s\n", m.RunID)
	fmt.Fprintf(&b, "Version:  %s\n", m.Version)
	fmt.Fprintf(&b, "Volumes:  %s\n", joinOrNone(m.Volumes))
	fmt.Fprintf(&b, "Skipped:  %s\n", joinOrNone(m.SkippedVolumes))
	fmt.Fprintf(&b, "Config:   %s\n", joinOrNone(m.ConfigFiles))

	b.WriteString("\nContainers:\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tNAME\tIMAGE\tSTATUS")
	for _, c := range inv.Containers {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", c.ID, c.Name, c.Image, c.Status)
	}
	tw.Flush()

	b.WriteString("\nImages:\n")
	for _, img := range inv.Images {
		fmt.Fprintf(&b, "  %s\n", img)
	}

	b.WriteString("\nDocker volumes:\n")
	for _, v := range inv.Volumes {
		fmt.Fprintf(&b, "  %s\n", v)
	}

	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func ReadManifest(dir string) (*models.SnapshotManifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, constants.SnapshotManifestFile))
	if err != nil {
		return nil, err
	}

	var m models.SnapshotManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// readInfoCreated recovers the creation time from backup-info.txt for
// snapshots written without a manifest.
func readInfoCreated(dir string) (time.Time, bool) {
	f, err := os.Open(filepath.Join(dir, constants.SnapshotInfoFile))
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, infoCreatedPrefix) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, infoCreatedPrefix))
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t, true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}
