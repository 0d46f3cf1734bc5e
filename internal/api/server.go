package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"speedtest-core/internal/constants"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/server"
	"speedtest-core/internal/utils"
)

// StatusProvider 管理接口读取的响应端状态
type StatusProvider interface {
	Status() server.Status
	Transfers() []server.TransferRecord
}

// Server 响应端管理接口，只读
type Server struct {
	provider StatusProvider
	router   *mux.Router
	logger   corelog.Logger
	started  time.Time
}

// NewServer 创建管理接口并注册路由
func NewServer(provider StatusProvider, logger corelog.Logger) *Server {
	if logger == nil {
		logger = corelog.Default()
	}
	s := &Server{
		provider: provider,
		router:   mux.NewRouter(),
		logger:   logger.WithField(constants.LogFieldComponent, "management"),
		started:  time.Now(),
	}
	s.registerRoutes()
	return s
}

// NewService 把管理接口包装为可由 ServiceManager 管理的 HTTP 服务
func NewService(listen string, provider StatusProvider, logger corelog.Logger) *utils.HTTPService {
	if listen == "" {
		listen = constants.DefaultManagementListen
	}
	return utils.NewHTTPService("management", listen, NewServer(provider, logger).Handler())
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes 注册所有路由
func (s *Server) registerRoutes() {
	s.router.Use(s.loggingMiddleware)
	setErrorHandlers(s.router)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	// 子路由不继承父路由的 404/405 处理器
	api := s.router.PathPrefix("/api/v1").Subrouter()
	setErrorHandlers(api)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/transfers", s.handleTransfers).Methods(http.MethodGet)
}

func setErrorHandlers(router *mux.Router) {
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// loggingMiddleware 日志中间件
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("API: %s %s - %s", r.Method, r.RequestURI, time.Since(start))
	})
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.provider.Status())
}

// TransferListResponse 传输记录列表
type TransferListResponse struct {
	Transfers []server.TransferRecord `json:"transfers"`
	Total     int                     `json:"total"`
}

// handleTransfers 支持 protocol=tcp|udp 过滤与 limit 截断
func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	proto := server.Protocol(query.Get("protocol"))
	if proto != "" && proto != server.ProtocolTCP && proto != server.ProtocolUDP {
		respondError(w, http.StatusBadRequest, "protocol must be tcp or udp")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	all := s.provider.Transfers()
	out := make([]server.TransferRecord, 0, len(all))
	for _, rec := range all {
		if proto != "" && rec.Protocol != proto {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	respondJSON(w, http.StatusOK, TransferListResponse{Transfers: out, Total: len(out)})
}
