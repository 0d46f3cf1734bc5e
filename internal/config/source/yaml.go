package source

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"speedtest-core/internal/config/schema"
	coreerrors "speedtest-core/internal/core/errors"
)

// YAMLSource loads configuration from YAML files
type YAMLSource struct {
	paths []string // list of YAML file paths to load
}

// NewYAMLSource creates a new YAMLSource with the specified file paths
func NewYAMLSource(paths ...string) *YAMLSource {
	return &YAMLSource{
		paths: paths,
	}
}

// Name returns the source name
func (s *YAMLSource) Name() string {
	return "yaml"
}

// Priority returns the source priority
func (s *YAMLSource) Priority() int {
	return PriorityYAML
}

// LoadInto loads YAML configuration into the config structure
// Files are loaded in order, with later files overriding earlier ones.
// Keys absent from a file keep the value set by lower-priority sources.
func (s *YAMLSource) LoadInto(cfg *schema.Root) error {
	for _, path := range s.paths {
		if path == "" {
			continue
		}

		expandedPath, err := expandPath(path)
		if err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "failed to expand path %q", path)
		}

		if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "failed to read config file %q", expandedPath)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "failed to parse YAML file %q", expandedPath)
		}
	}

	return nil
}

// FindConfigFile searches for a configuration file in standard locations
// Returns the first found file path, or empty string if none found
func FindConfigFile(configFile string, appType string) string {
	if configFile != "" {
		expanded, err := expandPath(configFile)
		if err == nil {
			if _, err := os.Stat(expanded); err == nil {
				return expanded
			}
		}
		return configFile
	}

	var names []string
	switch appType {
	case "server":
		names = []string{"server.yaml", "config.yaml"}
	case "client":
		names = []string{"client.yaml", "client-config.yaml"}
	}

	var searchPaths []string
	for _, name := range names {
		searchPaths = append(searchPaths, filepath.Join(".", name))
	}
	if execPath, err := os.Executable(); err == nil {
		execDir := filepath.Dir(execPath)
		for _, name := range names {
			searchPaths = append(searchPaths, filepath.Join(execDir, name))
		}
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		for _, name := range names {
			searchPaths = append(searchPaths, filepath.Join(homeDir, ".speedtest", name))
		}
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// expandPath expands ~ to user home directory
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[1:])
	}

	return filepath.Clean(path), nil
}
