package gateway

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/pkg/middleware"
)

// Server はAPIプロキシゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// upstream は転送先の固定オリジン。
	upstream *url.URL
	// client は上流呼び出しに使うHTTPクライアント。
	client *http.Client
}

// NewServer は新しいゲートウェイサーバーを生成する。
func NewServer(cfg config.Gateway) (*Server, error) {
	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("上流URLのパースに失敗: %w", err)
	}
	if upstream.Scheme != "http" && upstream.Scheme != "https" {
		return nil, fmt.Errorf("上流URLのスキームが不正です: %q", cfg.UpstreamURL)
	}
	if upstream.Host == "" {
		return nil, fmt.Errorf("上流URLにホストがありません: %q", cfg.UpstreamURL)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.MaxMultipartMemory = cfg.MaxMultipartMemory

	s := &Server{
		router:   router,
		port:     cfg.Port,
		upstream: upstream,
		client: &http.Client{
			Timeout: cfg.UpstreamTimeout,
		},
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		forward := s.handleForward()
		api.GET("/*path", forward)
		api.POST("/*path", forward)
		api.PUT("/*path", forward)
		api.DELETE("/*path", forward)
		// プリフライト（上流へは転送しない）
		api.OPTIONS("/*path", s.handlePreflight())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
}

// handlePreflight はCORSプリフライトに空の200を返すハンドラを返す。
// CORSヘッダーはミドルウェアで付与済み。
func (s *Server) handlePreflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
}
