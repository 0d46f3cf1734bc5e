package loader

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"speedtest-core/internal/config/source"
	coreerrors "speedtest-core/internal/core/errors"
)

// WriteTemplate writes the default configuration as YAML
func WriteTemplate(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(source.GetDefaultConfig()); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInternal, "encode config template")
	}
	return enc.Close()
}

// ExportTemplate writes the default configuration to path, creating parent directories
func ExportTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeInvalidConfig, "create %s", path)
	}
	defer f.Close()
	return WriteTemplate(f)
}
