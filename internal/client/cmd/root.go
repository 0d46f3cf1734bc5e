// Package cmd 探测端命令行
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"speedtest-core/internal/client"
	"speedtest-core/internal/client/cli"
	"speedtest-core/internal/config/loader"
	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/config/validator"
	"speedtest-core/internal/constants"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/utils"
	"speedtest-core/internal/version"
)

// 全局标志
var (
	configFile string
	logFile    string
	payload    uint64
	tcpCount   int
	udpCount   int
	cycles     int
	noColor    bool
)

// rootCmd 代表根命令
var rootCmd = newRootCmd()

// newRootCmd 创建根命令并绑定全局标志
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speedtest-client",
		Short: "LAN speed test client",
		Long: `Discovers a speed test server on the local network and measures
TCP throughput and UDP throughput and delivery.

Without --size the client asks for the file size and connection counts
interactively (or reads three lines from stdin when it is not a terminal).

Examples:
  speedtest-client
  speedtest-client --size 1000000 --tcp 2 --udp 2 --cycles 1`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runProber,
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file path")
	flags.StringVar(&logFile, "log", "", "Log file path")
	flags.Uint64Var(&payload, "size", 0, "File size in bytes; skips the interactive prompt")
	flags.IntVar(&tcpCount, "tcp", 1, "Number of TCP connections (with --size)")
	flags.IntVar(&udpCount, "udp", 1, "Number of UDP connections (with --size)")
	flags.IntVar(&cycles, "cycles", 0, "Stop after this many tests, 0 = run until interrupted")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute 执行根命令
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			corelog.Errorf("FATAL: main goroutine panic recovered: %v", r)
			fmt.Fprintf(os.Stderr, "\nPANIC: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", string(debug.Stack()))
			os.Exit(2)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runProber 加载配置，初始化日志，在 ServiceManager 下运行探测端
func runProber(cmd *cobra.Command, args []string) error {
	root, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := utils.InitLogger(root.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	source, closeSource, err := newParamSource(root.Prober, os.Stdin, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeSource()

	sink := client.NewChannelSink(cli.NewOutput(cmd.OutOrStdout(), root.Prober.NoColor), constants.DefaultResultBacklog)
	return run(context.Background(), root, source, sink, true)
}

// loadConfig 加载配置，命令行参数优先级最高
func loadConfig(cmd *cobra.Command) (*schema.Root, error) {
	root, err := loader.LoadClient(configFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("size") {
		root.Prober.PayloadSize = payload
	}
	if flags.Changed("tcp") {
		root.Prober.TCPConnections = tcpCount
	}
	if flags.Changed("udp") {
		root.Prober.UDPConnections = udpCount
	}
	if flags.Changed("cycles") {
		root.Prober.Cycles = cycles
	}
	if flags.Changed("no-color") {
		root.Prober.NoColor = noColor
	}
	if logFile != "" {
		root.Log.Output = schema.LogOutputFile
		root.Log.File = logFile
	}

	if root.Log, err = utils.ResolveLogConfig(root.Log, "client"); err != nil {
		return nil, err
	}
	if err := validator.ValidateConfig(root).Err(); err != nil {
		return nil, fmt.Errorf(constants.MsgInvalidConfiguration, err)
	}
	return root, nil
}

// newParamSource 配置了文件大小时使用固定参数，否则从标准输入读取
func newParamSource(pc schema.ProberConfig, in *os.File, out io.Writer) (client.ParamSource, func(), error) {
	if pc.PayloadSize > 0 {
		params := client.Params{
			PayloadSize:    pc.PayloadSize,
			TCPConnections: pc.TCPConnections,
			UDPConnections: pc.UDPConnections,
		}
		if err := params.Validate(); err != nil {
			return nil, nil, err
		}
		return cli.NewStaticSource(params), func() {}, nil
	}

	source, err := cli.NewParamSource(in, out)
	if err != nil {
		return nil, nil, err
	}
	closeSource := func() {}
	if c, ok := source.(io.Closer); ok {
		closeSource = func() { _ = c.Close() }
	}
	return source, closeSource, nil
}

// run 状态机结束（参数源耗尽、达到轮数）、ctx 取消或收到信号时返回
func run(ctx context.Context, root *schema.Root, source client.ParamSource, sink *client.ChannelSink, handleSignals bool) error {
	defer func() {
		if err := sink.Close(); err != nil {
			corelog.Warnf("Result sink close: %v", err)
		}
	}()

	m := metrics.NewMemoryMetrics(ctx)
	prober, err := client.NewOrchestrator(client.ConfigFromSchema(root.Prober), source, sink,
		client.WithLogger(corelog.Default()),
		client.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	serviceConfig := utils.DefaultServiceConfig()
	serviceConfig.EnableSignalHandling = handleSignals
	sm := utils.NewServiceManager(serviceConfig)
	if err := sm.RegisterService(prober); err != nil {
		return err
	}
	if err := sm.RegisterResource("metrics", m); err != nil {
		return err
	}
	sm.OnStarted(func() {
		utils.SafeGo("prober-watch", func() {
			<-prober.Done()
			sm.TriggerShutdown()
		})
	})

	if err := sm.RunWithContext(ctx); err != nil {
		return err
	}

	corelog.WithFields(map[string]interface{}{
		"cycles": prober.Cycles(),
	}).Infof("Prober exited")
	return prober.Err()
}
