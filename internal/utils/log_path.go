package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"speedtest-core/internal/config/schema"
)

// LogPathCandidates 返回某个角色的默认日志路径候选（按优先级排序）
// role 为 "client" 或 "server"
func LogPathCandidates(role string) []string {
	var paths []string
	name := role + ".log"

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".speedtest", "logs", name))
	}
	if workDir, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(workDir, "logs", name))
	}
	return append(paths, filepath.Join(os.TempDir(), "speedtest-"+name))
}

// DefaultLogPath 返回第一个可写的默认日志路径
func DefaultLogPath(role string) (string, error) {
	return ResolveLogPath(LogPathCandidates(role))
}

// ResolveLogPath 解析并验证日志路径，返回第一个可用的路径
// 全部不可写时返回最后一个候选
func ResolveLogPath(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no log path candidates provided")
	}

	for _, candidate := range candidates {
		expandedPath, err := ExpandPath(candidate)
		if err != nil {
			continue
		}
		if canWriteToPath(expandedPath) {
			return expandedPath, nil
		}
	}

	lastPath, err := ExpandPath(candidates[len(candidates)-1])
	if err != nil {
		return "", fmt.Errorf("failed to resolve any log path: %w", err)
	}
	return lastPath, nil
}

// canWriteToPath 检查是否可以写入指定路径（包括目录创建）
func canWriteToPath(path string) bool {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

// ResolveLogConfig 输出到文件时展开日志路径，未指定路径则使用 role 的默认路径
func ResolveLogConfig(cfg schema.LogConfig, role string) (schema.LogConfig, error) {
	if cfg.Output != schema.LogOutputFile {
		return cfg, nil
	}

	var err error
	if cfg.File == "" {
		cfg.File, err = DefaultLogPath(role)
	} else {
		cfg.File, err = ExpandPath(cfg.File)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to resolve log path: %w", err)
	}
	return cfg, nil
}
