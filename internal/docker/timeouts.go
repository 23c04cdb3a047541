package docker

import "time"

const (
	ImagePullTimeout   = 10 * time.Minute
	ContainerOpTimeout = 30 * time.Second
	HelperTimeout      = 60 * time.Minute
	PingTimeout        = 5 * time.Second
	ExecTimeout        = 15 * time.Second
)
