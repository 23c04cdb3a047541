package models

import (
	"strings"
	"time"
)

// ServiceState is one row of `docker compose ps`.
type ServiceState struct {
	Name    string
	Service string
	State   string
	Health  string
	Status  string
	Image   string
}

func (s ServiceState) Ready() bool {
	return s.State == "running" && (s.Health == "" || s.Health == "healthy")
}

// Up mirrors the "Up ..." status string the docker CLI prints.
func (s ServiceState) Up() bool {
	return strings.HasPrefix(s.Status, "Up")
}

type PruneReport struct {
	ImagesDeleted  int
	SpaceReclaimed uint64
}

// GitCommit identifies the work-tree HEAD after a sync.
type GitCommit struct {
	Hash      string
	ShortHash string
	Subject   string
	Author    string
	When      time.Time
	Branch    string
}
