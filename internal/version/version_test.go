package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	oldVersion, oldBuild, oldCommit := Version, BuildTime, GitCommit
	t.Cleanup(func() { Version, BuildTime, GitCommit = oldVersion, oldBuild, oldCommit })

	Version, BuildTime, GitCommit = "1.2.0", "", ""
	assert.Equal(t, "v1.2.0", GetVersion())

	BuildTime, GitCommit = "2026-01-02", "0123456789abcdef"
	assert.Equal(t, "v1.2.0 (built 2026-01-02) commit 01234567", GetVersion())

	GitCommit = "abc"
	assert.Equal(t, "v1.2.0 (built 2026-01-02) commit abc", GetVersion())
}

func TestReadVersionFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "VERSION")
	assert.NoError(t, os.WriteFile(file, []byte("v0.9.1\n"), 0644))

	assert.Equal(t, "0.9.1", readVersionFile(filepath.Join(dir, "missing"), file))
	assert.Equal(t, "dev", readVersionFile(filepath.Join(dir, "missing")))
}
