// Package version 构建版本信息
package version

import (
	"os"
	"strings"
)

var (
	// Version 版本号，构建时通过 -ldflags 注入，否则尝试读取 VERSION 文件
	Version = "dev"

	// BuildTime 构建时间，通过 -ldflags 注入
	BuildTime = ""

	// GitCommit Git 提交哈希，通过 -ldflags 注入
	GitCommit = ""
)

func init() {
	if Version == "dev" {
		Version = readVersionFile("VERSION", "../VERSION")
	}
}

// readVersionFile 依次尝试候选文件，去掉 v 前缀
func readVersionFile(paths ...string) string {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if v := strings.TrimPrefix(strings.TrimSpace(string(data)), "v"); v != "" {
			return v
		}
	}
	return "dev"
}

// GetVersion 获取完整版本信息
func GetVersion() string {
	v := GetShortVersion()
	if BuildTime != "" {
		v += " (built " + BuildTime + ")"
	}
	if GitCommit != "" {
		v += " commit " + GitCommit[:min(8, len(GitCommit))]
	}
	return v
}

// GetShortVersion 获取简短版本号
func GetShortVersion() string {
	return "v" + Version
}
