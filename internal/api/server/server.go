package server

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Nevern1y/Whity-sub000/config"
)

// Server 对 http.Server 的轻量封装。
// 这里集中管理启动和优雅关闭，避免调用方直接操作底层对象。
type Server struct {
	httpServer *http.Server
}

// New 把路由包装成 HTTP Server。
func New(cfg config.ServerConfig, r *gin.Engine) *Server {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "" {
		ginMode = gin.ReleaseMode
	}
	gin.SetMode(ginMode)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Start 启动 HTTP 监听。
// 正常优雅关闭时会返回 http.ErrServerClosed，调用方应将其视为正常退出。
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown 执行优雅停机。
// 调用方需要传入带超时的 ctx，以防止无限等待。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
