package server

import (
	"context"
	"fmt"
	"io"
	"os"

	"speedtest-core/internal/api"
	"speedtest-core/internal/config/loader"
	"speedtest-core/internal/config/schema"
	"speedtest-core/internal/config/validator"
	"speedtest-core/internal/constants"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/core/metrics"
	"speedtest-core/internal/server"
	"speedtest-core/internal/utils"
)

// Server 响应端进程，组合 Responder 与可选的管理接口
type Server struct {
	config         *schema.Root
	configPath     string
	serviceManager *utils.ServiceManager
	metrics        *metrics.MemoryMetrics
	responder      *server.Responder
	management     *utils.HTTPService
	bannerOut      io.Writer
}

// LoadConfig 加载并校验响应端配置
func LoadConfig(configPath string) (*schema.Root, error) {
	config, err := loader.LoadServer(configPath)
	if err != nil {
		return nil, err
	}
	if config.Log, err = utils.ResolveLogConfig(config.Log, "server"); err != nil {
		return nil, err
	}
	if err := validator.ValidateConfig(config).Err(); err != nil {
		return nil, fmt.Errorf(constants.MsgInvalidConfiguration, err)
	}
	return config, nil
}

// New 初始化日志并创建服务器，服务在 Run 时才绑定端口
func New(config *schema.Root, configPath string) (*Server, error) {
	if err := utils.InitLogger(config.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if configPath != "" {
		corelog.Infof(constants.MsgConfigLoadedFrom, configPath)
	}

	serviceConfig := utils.DefaultServiceConfig()
	serviceConfig.EnableSignalHandling = true

	s := &Server{
		config:         config,
		configPath:     configPath,
		serviceManager: utils.NewServiceManager(serviceConfig),
		metrics:        metrics.NewMemoryMetrics(context.Background()),
		bannerOut:      os.Stdout,
	}
	if err := metrics.SetGlobalMetrics(s.metrics); err != nil {
		return nil, err
	}

	var err error
	s.responder, err = server.NewResponder(
		server.ConfigFromSchema(config.Responder),
		server.WithLogger(corelog.Default()),
		server.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, err
	}

	if config.Management.Enabled {
		s.management = api.NewService(config.Management.Listen, s.responder, corelog.Default())
	}

	if err := s.registerServices(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerServices 响应端先启动，管理接口后启动；停止顺序相反
func (s *Server) registerServices() error {
	if err := s.serviceManager.RegisterService(s.responder); err != nil {
		return err
	}
	if s.management != nil {
		if err := s.serviceManager.RegisterService(s.management); err != nil {
			return err
		}
	}
	return s.serviceManager.RegisterResource("metrics", s.metrics)
}

// Responder 返回响应端
func (s *Server) Responder() *server.Responder {
	return s.responder
}

// ManagementAddr 管理接口实际监听地址，未启用或未启动时为空
func (s *Server) ManagementAddr() string {
	if s.management == nil || s.management.Addr() == nil {
		return ""
	}
	return s.management.Addr().String()
}

// SetBannerOutput 设置启动横幅的输出位置，nil 表示不输出
func (s *Server) SetBannerOutput(w io.Writer) {
	s.bannerOut = w
}

// Run 运行服务器直到收到信号
func (s *Server) Run() error {
	return s.RunWithContext(context.Background())
}

// RunWithContext 运行服务器直到 ctx 取消或收到信号
func (s *Server) RunWithContext(ctx context.Context) error {
	s.serviceManager.OnStarted(func() {
		if s.bannerOut != nil {
			s.DisplayStartupBanner(s.bannerOut)
		}
	})
	return s.serviceManager.RunWithContext(ctx)
}

// Shutdown 触发优雅关闭
func (s *Server) Shutdown() {
	s.serviceManager.TriggerShutdown()
}
