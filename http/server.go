// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"carprice/service"
	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	hub    *Hub
	config ServerConfig
	log    *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         int
	Timeout      time.Duration
	MaxBodyBytes int64
	StaticDir    string
	PlotURL      string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         5000,
		Timeout:      30 * time.Second,
		MaxBodyBytes: 1 << 20,
		StaticDir:    "static",
		PlotURL:      "static/plot.png",
	}
}

// Deps 处理器依赖
type Deps struct {
	App         *service.App
	Hub         *Hub
	TrainingLog TrainingLogReader
	Logger      *zap.Logger
}

// NewHandler 组装路由和中间件
func NewHandler(config ServerConfig, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	RegisterHandlers(mux, NewHandlers(deps.App, config.PlotURL, logger))
	RegisterAPIHandlers(mux, deps.App, deps.TrainingLog, logger)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(config.StaticDir))))
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWebSocket)
	}

	chain := Chain(
		RecoveryMiddleware(logger),                 // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(logger),                   // 2. 日志中间件
		SecurityHeadersMiddleware,                  // 3. 安全头中间件
		RequestSizeMiddleware(config.MaxBodyBytes), // 4. 请求体大小限制
	)
	return chain(mux)
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      NewHandler(config, deps),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		hub:    deps.Hub,
		config: config,
		log:    logger,
	}
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if s.hub != nil {
		s.hub.Stop()
	}

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
