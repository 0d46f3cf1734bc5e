package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath 展开 ~ 并转换为绝对路径，例如 ~/logs/client.log
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert to absolute path: %w", err)
	}
	return abs, nil
}
