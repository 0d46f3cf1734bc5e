package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/constants"
	"speedtest-core/internal/server"
	"speedtest-core/internal/version"
)

const (
	bannerWidth = 60
)

var (
	bannerCyan  = color.New(color.FgCyan).SprintFunc()
	bannerBold  = color.New(color.Bold).SprintFunc()
	bannerGreen = color.New(color.FgGreen).SprintFunc()
	bannerFaint = color.New(color.Faint).SprintFunc()
)

// DisplayStartupBanner 显示启动信息横幅，端口绑定后调用
func (s *Server) DisplayStartupBanner(w io.Writer) {
	displayTitle(w)
	displayResponderInfo(w, s)
	displayManagement(w, s)
	displayFooter(w)
}

// displayTitle 显示标题
func displayTitle(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", bannerCyan(bannerBold("LAN Speed Test Server")), bannerFaint(version.GetShortVersion()))
	fmt.Fprintln(w)
}

// displayResponderInfo 显示响应端信息
func displayResponderInfo(w io.Writer, s *Server) {
	section(w, "Responder")

	status := s.responder.Status()
	rc := s.config.Responder

	rows := []struct {
		label string
		value string
	}{
		{"IP Address", server.LocalIP()},
		{"TCP Port", fmt.Sprintf("%d", status.TCPPort)},
		{"UDP Port", fmt.Sprintf("%d", status.UDPPort)},
		{"Broadcast", fmt.Sprintf("%s every %s", status.BroadcastAddress, rc.BroadcastInterval)},
		{"Chunk Size", fmt.Sprintf("%d bytes", status.ChunkSize)},
		{"Segment Rate", formatSegmentRate(status.SegmentRate)},
		{"Config File", orNone(s.configPath)},
		{"Log", formatLog(s.config.Log)},
		{"Start Time", time.Now().Format("2006-01-02 15:04:05")},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-18s %s\n", bannerBold(row.label+":"), row.value)
	}
	fmt.Fprintln(w)
}

// displayManagement 显示管理接口信息
func displayManagement(w io.Writer, s *Server) {
	section(w, "Management API")

	addr := s.ManagementAddr()
	if addr == "" {
		fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Status:"), bannerFaint("✗ Disabled"))
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  %-18s %s\n", bannerBold("Status:"), bannerGreen("✓ Enabled"))
	fmt.Fprintf(w, "  %-18s http://%s\n", bannerBold("Address:"), addr)
	for _, path := range []string{"/healthz", "/api/v1/stats", "/api/v1/transfers"} {
		fmt.Fprintf(w, "    • %s\n", path)
	}
	fmt.Fprintln(w)
}

// displayFooter 显示页脚，最后一行与日志中的启动消息一致
func displayFooter(w io.Writer) {
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("━", bannerWidth)))
	fmt.Fprintf(w, constants.MsgServerStarted+"\n", server.LocalIP())
}

func section(w io.Writer, title string) {
	fmt.Fprintln(w, bannerBold("  "+title))
	fmt.Fprintln(w, bannerFaint("  "+strings.Repeat("─", bannerWidth)))
}

func formatSegmentRate(rate float64) string {
	if rate <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%.0f segments/s", rate)
}

func formatLog(cfg schema.LogConfig) string {
	if cfg.Output == schema.LogOutputFile {
		return fmt.Sprintf("%s (%s)", cfg.File, cfg.Level)
	}
	return fmt.Sprintf("%s (%s)", cfg.Output, cfg.Level)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
