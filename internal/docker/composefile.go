package docker

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var ErrInvalidComposeFile = errors.New("invalid compose file")

type ComposeFile struct {
	Services map[string]ComposeService `yaml:"services"`
	Volumes  map[string]any            `yaml:"volumes"`
}

type ComposeService struct {
	Image         string `yaml:"image"`
	Build         any    `yaml:"build"`
	ContainerName string `yaml:"container_name"`
}

func ParseComposeFile(path string) (*ComposeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	var compose ComposeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidComposeFile, err)
	}
	if len(compose.Services) == 0 {
		return nil, fmt.Errorf("%w: no services defined", ErrInvalidComposeFile)
	}

	return &compose, nil
}

// BuildableServices lists services with a build section, sorted by name.
func (f *ComposeFile) BuildableServices() []string {
	var services []string
	for name, svc := range f.Services {
		if svc.Build != nil {
			services = append(services, name)
		}
	}
	sort.Strings(services)
	return services
}

func (f *ComposeFile) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
