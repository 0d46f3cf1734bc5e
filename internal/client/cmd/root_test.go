package cmd

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speedtest-core/internal/client"
	"speedtest-core/internal/client/cli"
	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/config/source"
	coreerrors "speedtest-core/internal/core/errors"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/server"
)

// parseArgs 创建新的根命令并只解析标志
func parseArgs(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "client.log")
	cmd := parseArgs(t,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--size", "2048", "--tcp", "3", "--udp", "0", "--cycles", "2", "--no-color",
		"--log", logPath,
	)

	root, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), root.Prober.PayloadSize)
	assert.Equal(t, 3, root.Prober.TCPConnections)
	assert.Equal(t, 0, root.Prober.UDPConnections)
	assert.Equal(t, 2, root.Prober.Cycles)
	assert.True(t, root.Prober.NoColor)
	assert.Equal(t, schema.LogOutputFile, root.Log.Output)
	assert.Equal(t, logPath, root.Log.File)
}

func TestLoadConfig_DefaultsLogToFile(t *testing.T) {
	cmd := parseArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))

	root, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Zero(t, root.Prober.PayloadSize)
	assert.Equal(t, schema.LogOutputFile, root.Log.Output)
	assert.True(t, strings.HasSuffix(root.Log.File, "client.log"), root.Log.File)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cmd := parseArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--cycles", "-1")
	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prober.cycles")
}

func TestNewParamSource_Static(t *testing.T) {
	src, closeSource, err := newParamSource(schema.ProberConfig{PayloadSize: 10, TCPConnections: 1}, nil, nil)
	require.NoError(t, err)
	defer closeSource()

	p, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.Params{PayloadSize: 10, TCPConnections: 1}, p)

	_, _, err = newParamSource(schema.ProberConfig{PayloadSize: 10}, nil, nil)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidConfig), "got %v", err)
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestRun_OneCycleAgainstResponder(t *testing.T) {
	root := source.GetDefaultConfig()
	root.Prober.DiscoveryPort = freeUDPPort(t)
	root.Prober.RecvTimeout = 100 * time.Millisecond
	root.Prober.IdleTimeout = 300 * time.Millisecond
	root.Prober.Cycles = 1

	cfg := server.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.BroadcastAddress = "127.0.0.1"
	cfg.DiscoveryPort = root.Prober.DiscoveryPort
	cfg.BroadcastInterval = 50 * time.Millisecond
	responder, err := server.NewResponder(cfg, server.WithLogger(corelog.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, responder.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, responder.Stop(ctx))
	}()

	var out bytes.Buffer
	sink := client.NewChannelSink(cli.NewOutput(&out, true), 0)
	params := client.Params{PayloadSize: 50_000, TCPConnections: 1, UDPConnections: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, run(ctx, root, cli.NewStaticSource(params), sink, false))

	text := out.String()
	assert.Contains(t, text, "Client started, listening for offer requests...")
	assert.Contains(t, text, "Received offer from 127.0.0.1")
	assert.Contains(t, text, "TCP transfer #1 finished")
	assert.Contains(t, text, "bytes received: 50000")
	assert.Contains(t, text, "UDP transfer #2 finished")
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "Speed Test Client v"), out.String())
}
