package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"speedtest-core/internal/core/dispose"
	corelog "speedtest-core/internal/core/log"
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// 优雅关闭超时时间
	GracefulShutdownTimeout time.Duration
	// 资源释放超时时间
	ResourceDisposeTimeout time.Duration
	// 是否启用信号处理
	EnableSignalHandling bool
}

// DefaultServiceConfig 默认服务配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		GracefulShutdownTimeout: 10 * time.Second,
		ResourceDisposeTimeout:  5 * time.Second,
		EnableSignalHandling:    true,
	}
}

// Service 服务接口
// Start 不阻塞，长期运行的循环在内部 goroutine 中执行直到 ctx 取消或 Stop
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// HTTPService HTTP服务实现
type HTTPService struct {
	name    string
	addr    string
	handler http.Handler
	server  *http.Server
	bound   net.Addr
	mu      sync.Mutex
}

// NewHTTPService 创建HTTP服务
func NewHTTPService(name, addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name:    name,
		addr:    addr,
		handler: handler,
	}
}

func (h *HTTPService) Name() string {
	return h.name
}

// Start 同步监听端口，绑定失败直接返回错误
func (h *HTTPService) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.addr, err)
	}
	h.bound = ln.Addr()
	h.server = &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	corelog.Infof("Starting HTTP service %s on %s", h.name, h.bound)
	server := h.server
	SafeGo(h.name, func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			corelog.Errorf("HTTP service %s error: %v", h.name, err)
		}
	})

	return nil
}

// Addr 返回实际监听地址，未启动时为 nil
func (h *HTTPService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

func (h *HTTPService) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.server == nil {
		return nil
	}

	corelog.Infof("Stopping HTTP service %s", h.name)
	err := h.server.Shutdown(ctx)
	h.server = nil
	return err
}

// ServiceManager 服务管理器
// 按注册顺序启动服务，按相反顺序停止，最后释放注册的资源
type ServiceManager struct {
	dispose.Dispose
	config       *ServiceConfig
	services     []Service
	resourceMgr  *dispose.ResourceManager
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	started      []Service
	onStarted    func()
	mu           sync.Mutex
}

// NewServiceManager 创建新的服务管理器
func NewServiceManager(config *ServiceConfig) *ServiceManager {
	if config == nil {
		config = DefaultServiceConfig()
	}

	manager := &ServiceManager{
		config:       config,
		resourceMgr:  dispose.NewResourceManager(),
		shutdownChan: make(chan struct{}),
	}
	manager.SetCtx(context.Background(), nil)
	return manager
}

// RegisterService 注册服务
func (sm *ServiceManager) RegisterService(service Service) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := service.Name()
	for _, s := range sm.services {
		if s.Name() == name {
			return fmt.Errorf("service %s already registered", name)
		}
	}

	sm.services = append(sm.services, service)
	corelog.Debugf("Service registered: %s", name)
	return nil
}

// ListServices 按注册顺序列出服务
func (sm *ServiceManager) ListServices() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	names := make([]string, 0, len(sm.services))
	for _, s := range sm.services {
		names = append(names, s.Name())
	}
	return names
}

// RegisterResource 注册资源，关闭时在所有服务停止后释放
func (sm *ServiceManager) RegisterResource(name string, resource dispose.Disposable) error {
	return sm.resourceMgr.Register(name, resource)
}

// StartAllServices 启动所有服务，任一失败时停止已启动的服务
func (sm *ServiceManager) StartAllServices() error {
	sm.mu.Lock()
	services := make([]Service, len(sm.services))
	copy(services, sm.services)
	sm.mu.Unlock()

	corelog.Infof("Starting %d services...", len(services))

	for _, service := range services {
		corelog.Debugf("Starting service: %s", service.Name())
		if err := service.Start(sm.Ctx()); err != nil {
			corelog.Errorf("Failed to start service %s: %v", service.Name(), err)
			_ = sm.StopAllServices()
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
		sm.mu.Lock()
		sm.started = append(sm.started, service)
		sm.mu.Unlock()
		corelog.Debugf("Service started: %s", service.Name())
	}

	return nil
}

// StopAllServices 按启动的相反顺序停止服务
func (sm *ServiceManager) StopAllServices() error {
	sm.mu.Lock()
	started := sm.started
	sm.started = nil
	sm.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sm.config.GracefulShutdownTimeout)
	defer cancel()

	var lastErr error
	for i := len(started) - 1; i >= 0; i-- {
		service := started[i]
		if err := service.Stop(shutdownCtx); err != nil {
			corelog.Errorf("Failed to stop service %s: %v", service.Name(), err)
			lastErr = err
		} else {
			corelog.Debugf("Service stopped: %s", service.Name())
		}
	}

	return lastErr
}

// OnStarted 设置全部服务启动成功后的回调，在 Run 中调用
func (sm *ServiceManager) OnStarted(fn func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStarted = fn
}

// Run 启动所有服务并阻塞到收到信号或 TriggerShutdown
func (sm *ServiceManager) Run() error {
	return sm.RunWithContext(context.Background())
}

// RunWithContext 使用指定上下文运行服务管理器
func (sm *ServiceManager) RunWithContext(ctx context.Context) error {
	if sm.config.EnableSignalHandling {
		stop := sm.setupSignalHandling()
		defer stop()
	}

	if err := sm.StartAllServices(); err != nil {
		return err
	}

	sm.mu.Lock()
	onStarted := sm.onStarted
	sm.mu.Unlock()
	if onStarted != nil {
		onStarted()
	}

	select {
	case <-ctx.Done():
		corelog.Infof("Context cancelled, initiating shutdown")
	case <-sm.shutdownChan:
	}

	return sm.gracefulShutdown()
}

// setupSignalHandling 设置信号处理
func (sm *ServiceManager) setupSignalHandling() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			corelog.Infof("Received signal: %v", sig)
			sm.TriggerShutdown()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// gracefulShutdown 优雅关闭
func (sm *ServiceManager) gracefulShutdown() error {
	corelog.Debugf("Starting graceful shutdown...")

	// 先取消上下文，让服务内部循环退出
	sm.Close()

	if err := sm.StopAllServices(); err != nil {
		corelog.Errorf("Service shutdown error: %v", err)
	}

	result := sm.resourceMgr.DisposeWithTimeout(sm.config.ResourceDisposeTimeout)
	if result.HasErrors() {
		corelog.Errorf("Resource disposal completed with errors: %v", result.Error())
		return fmt.Errorf("resource disposal failed: %s", result.Error())
	}

	corelog.Debugf("Graceful shutdown completed")
	return nil
}

// TriggerShutdown 触发关闭，可重复调用
func (sm *ServiceManager) TriggerShutdown() {
	sm.shutdownOnce.Do(func() {
		close(sm.shutdownChan)
	})
}
