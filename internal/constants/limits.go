package constants

import "time"

const (
	MaxSnapshotNameLength = 64
	MinSnapshotNameLength = 1

	DefaultKeepSnapshots = 5

	DefaultReadyAttempts = 30
	DefaultReadyInterval = 2 * time.Second

	DefaultLockTimeout = 10 * time.Second

	DiskUsageThreshold   = 90.0
	MemoryUsageThreshold = 90.0

	LogTailLines      = 100
	LogErrorThreshold = 5

	HTTPCheckTimeout = 5 * time.Second
	PortCheckTimeout = 3 * time.Second
)
