package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type RuntimeType string

const (
	RuntimeDocker RuntimeType = "docker"
	RuntimePodman RuntimeType = "podman"
)

type RuntimeInfo struct {
	Type       RuntimeType
	SocketPath string
	IsRootless bool
}

// DetectRuntime locates the container engine socket. DOCKER_HOST wins when set.
func DetectRuntime() (*RuntimeInfo, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		socketPath := strings.TrimPrefix(dockerHost, "unix://")
		rt := RuntimeDocker
		if strings.Contains(dockerHost, "podman") {
			rt = RuntimePodman
		}
		return &RuntimeInfo{Type: rt, SocketPath: socketPath}, nil
	}

	if _, err := os.Stat("/var/run/docker.sock"); err == nil {
		return &RuntimeInfo{Type: RuntimeDocker, SocketPath: "/var/run/docker.sock"}, nil
	}

	podmanSocket := GetPodmanSocketPath()
	if _, err := os.Stat(podmanSocket); err == nil {
		return &RuntimeInfo{
			Type:       RuntimePodman,
			SocketPath: podmanSocket,
			IsRootless: os.Getuid() != 0,
		}, nil
	}

	return nil, fmt.Errorf("no container runtime socket found (tried /var/run/docker.sock, %s)", podmanSocket)
}

func (r *RuntimeInfo) GetSocketURI() string {
	if strings.Contains(r.SocketPath, "://") {
		return r.SocketPath
	}
	return fmt.Sprintf("unix://%s", r.SocketPath)
}

func (r *RuntimeInfo) GetRuntimeName() string {
	name := string(r.Type)
	if r.Type == RuntimePodman && r.IsRootless {
		name += " (rootless)"
	}
	return name
}

func GetPodmanSocketPath() string {
	if os.Getuid() != 0 {
		return fmt.Sprintf("/run/user/%d/podman/podman.sock", os.Getuid())
	}
	return "/run/podman/podman.sock"
}

// versionProbe runs a command only to see whether it exits cleanly.
func versionProbe(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
