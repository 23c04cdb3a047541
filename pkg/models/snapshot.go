package models

import "time"

type Snapshot struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	ModTime   time.Time `json:"-"`
	SizeBytes int64     `json:"size_bytes"`
	Volumes   []string  `json:"volumes"`
}

// SnapshotManifest is the machine-readable twin of backup-info.txt.
type SnapshotManifest struct {
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	Operator       string    `json:"operator"`
	Host           string    `json:"host"`
	RunID          string    `json:"run_id"`
	Version        string    `json:"version"`
	Volumes        []string  `json:"volumes"`
	SkippedVolumes []string  `json:"skipped_volumes,omitempty"`
	ConfigFiles    []string  `json:"config_files"`
}

// Inventory is the point-in-time listing recorded with each snapshot.
type Inventory struct {
	Containers []ContainerSummary
	Images     []string
	Volumes    []string
}

type ContainerSummary struct {
	ID     string
	Name   string
	Image  string
	Status string
}
