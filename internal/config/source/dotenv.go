package source

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"speedtest-core/internal/config/schema"
	corelog "speedtest-core/internal/core/log"
)

// DotEnvSource loads .env files into the process environment.
// Variables already present in the environment are never overridden,
// so the EnvSource that runs afterwards sees real env vars first.
type DotEnvSource struct {
	dirs   []string // directories to search for .env files
	appEnv string   // application environment (e.g., production, development)
}

// NewDotEnvSource creates a new DotEnvSource
func NewDotEnvSource(dirs []string, appEnv string) *DotEnvSource {
	return &DotEnvSource{
		dirs:   dirs,
		appEnv: appEnv,
	}
}

// Name returns the source name
func (s *DotEnvSource) Name() string {
	return "dotenv"
}

// Priority returns the source priority
func (s *DotEnvSource) Priority() int {
	return PriorityDotEnv
}

// LoadInto loads .env files; values reach cfg through the EnvSource
func (s *DotEnvSource) LoadInto(_ *schema.Root) error {
	// Most specific first: godotenv.Load never overrides, so the first file wins
	files := make([]string, 0, 4)
	if s.appEnv != "" {
		files = append(files, ".env."+s.appEnv+".local", ".env."+s.appEnv)
	}
	files = append(files, ".env.local", ".env")

	for _, dir := range s.dirs {
		for _, file := range files {
			path := filepath.Join(dir, file)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				corelog.Debugf("Failed to load %s: %v", path, err)
				continue
			}
			corelog.Debugf("Loaded env file: %s", path)
		}
	}

	return nil
}

// FindDotEnvDirs finds directories that might contain .env files
func FindDotEnvDirs(configFile string) []string {
	var dirs []string

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	if configFile != "" {
		if dir := filepath.Dir(configFile); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}

	return dirs
}
