package devupstream

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/cmsadmin/internal/config"
	"github.com/nao1215/cmsadmin/pkg/event"
	"github.com/nao1215/cmsadmin/pkg/middleware"
	"golang.org/x/crypto/bcrypt"
)

// 応答コード。0以外は失敗を表す。
const (
	codeOK                 = 0
	codeInvalidCredentials = 1
	codeAccountDisabled    = 2
	codeRevoked            = 3
)

// seedRole はシード管理者のロール。
const seedRole = "super_admin"

// Server は開発用上流サーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db は管理者とトークン失効を保持するSQLite。
	db *sql.DB
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
}

// NewServer は設定からサーバーを生成する。
// データベースのマイグレーションと管理者のシードを行う。
func NewServer(ctx context.Context, cfg config.DevUpstream) (*Server, error) {
	db, err := openDB(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := seedAdmin(ctx, db, cfg.AdminUsername, cfg.AdminPassword, seedRole); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newServer(db, cfg.Port, cfg.JWTSecret), nil
}

func newServer(db *sql.DB, port, jwtSecret string) *Server {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		db:        db,
		jwtSecret: jwtSecret,
	}
	s.setupRoutes()
	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	admin := s.router.Group("/admin")
	{
		admin.POST("/login", s.handleLogin())
		// 資格情報なしのログアウト（CORSで遮断された場合の代替）
		admin.POST("/logout/fallback", s.handleFallbackLogout())

		authed := admin.Group("")
		authed.Use(middleware.JWTAuth(s.jwtSecret), s.rejectRevoked())
		{
			authed.POST("/logout", s.handleLogout())
			authed.GET("/profile", s.handleProfile())
			authed.POST("/media", s.handleMediaEcho())
			// 監査イベント一覧（クエリパラメータ: limit）
			authed.GET("/events", s.handleListEvents())
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "devupstream"})
	})
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// adminResponse は管理者情報のJSON構造。
type adminResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func toAdminResponse(a admin) adminResponse {
	return adminResponse{
		ID:       a.ID,
		Username: a.Username,
		Nickname: a.Nickname,
		Role:     a.Role,
		Status:   a.Status,
	}
}

// fail はアプリケーションレベルの失敗を返す。HTTPステータスは200のまま。
func fail(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, gin.H{"code": code, "msg": msg})
}

// handleLogin はログインを処理するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := c.Request.Context()
		a, err := findAdminByUsername(ctx, s.db, req.Username)
		if errors.Is(err, errAdminNotFound) {
			s.record(ctx, req.Username, event.TypeLoginFailed, event.LoginFailedData{Code: codeInvalidCredentials, Reason: "unknown user"})
			fail(c, codeInvalidCredentials, "ユーザー名またはパスワードが正しくありません")
			return
		}
		if err != nil {
			log.Printf("[DevUpstream] 管理者取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)) != nil {
			s.record(ctx, a.Username, event.TypeLoginFailed, event.LoginFailedData{Code: codeInvalidCredentials, Reason: "password mismatch"})
			fail(c, codeInvalidCredentials, "ユーザー名またはパスワードが正しくありません")
			return
		}
		if a.Status != statusActive {
			s.record(ctx, a.Username, event.TypeLoginFailed, event.LoginFailedData{Code: codeAccountDisabled, Reason: "account " + a.Status})
			fail(c, codeAccountDisabled, "このアカウントは無効化されています")
			return
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, strconv.FormatInt(a.ID, 10), a.Username, a.Role)
		if err != nil {
			log.Printf("[DevUpstream] トークン生成エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		if claims, err := middleware.ParseJWT(s.jwtSecret, token); err == nil {
			s.record(ctx, a.Username, event.TypeLoginSucceeded, event.LoginSucceededData{AdminID: a.ID, TokenID: claims.ID})
		}

		c.JSON(http.StatusOK, gin.H{
			"code": codeOK,
			"msg":  "ログインしました",
			"data": gin.H{
				"admin": toAdminResponse(a),
				"token": token,
			},
		})
	}
}

// rejectRevoked は失効済みトークンを拒否するミドルウェアを返す。
// JWTAuthの後に適用する。
func (s *Server) rejectRevoked() gin.HandlerFunc {
	return func(c *gin.Context) {
		revoked, err := isRevoked(c.Request.Context(), s.db, middleware.GetTokenID(c))
		if err != nil {
			log.Printf("[DevUpstream] 失効確認エラー: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": codeRevoked, "msg": "トークンは失効しています"})
			return
		}
		c.Next()
	}
}

// handleLogout はトークンを失効させるハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tokenID := middleware.GetTokenID(c)
		if err := revokeToken(ctx, s.db, tokenID, middleware.GetUserID(c)); err != nil {
			log.Printf("[DevUpstream] ログアウトエラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		s.record(ctx, middleware.GetUsername(c), event.TypeLoggedOut, event.LoggedOutData{TokenID: tokenID})
		c.JSON(http.StatusOK, gin.H{"code": codeOK, "msg": "ログアウトしました"})
	}
}

// handleFallbackLogout は資格情報なしのログアウトを受け付けるハンドラを返す。
// 失効させるトークンが特定できないため応答のみ返す。
func (s *Server) handleFallbackLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.record(c.Request.Context(), "", event.TypeFallbackLogout, event.FallbackLogoutData{RemoteAddr: c.ClientIP()})
		c.JSON(http.StatusOK, gin.H{"code": codeOK, "msg": "ログアウトしました"})
	}
}

// handleProfile はログイン中の管理者情報を返すハンドラを返す。
func (s *Server) handleProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := findAdminByID(c.Request.Context(), s.db, middleware.GetUserID(c))
		if errors.Is(err, errAdminNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": codeInvalidCredentials, "msg": "管理者が見つかりません"})
			return
		}
		if err != nil {
			log.Printf("[DevUpstream] プロフィール取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": codeOK, "msg": "ok", "data": toAdminResponse(a)})
	}
}

// defaultEventLimit は監査イベント一覧のデフォルト件数。
const defaultEventLimit = 50

// maxEventLimit は監査イベント一覧で指定できる最大件数。
const maxEventLimit = 500

// handleListEvents は監査イベントを新しい順に返すハンドラを返す。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultEventLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxEventLimit {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limitは1から%dの整数で指定してください", maxEventLimit)})
				return
			}
			limit = n
		}

		events, err := listEvents(c.Request.Context(), s.db, limit)
		if err != nil {
			log.Printf("[DevUpstream] %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": codeOK, "msg": "ok", "data": events})
	}
}

// uploadedFile はエコーするファイルパートの情報。
type uploadedFile struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// handleMediaEcho は受け取ったマルチパートの内容を返すハンドラを返す。
func (s *Server) handleMediaEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("マルチパートの解析に失敗しました: %v", err)})
			return
		}

		files := make([]uploadedFile, 0)
		for field, headers := range form.File {
			for _, fh := range headers {
				files = append(files, uploadedFile{
					Field:       field,
					Filename:    fh.Filename,
					Size:        fh.Size,
					ContentType: fh.Header.Get("Content-Type"),
				})
			}
		}
		slices.SortFunc(files, func(a, b uploadedFile) int {
			return cmp.Or(cmp.Compare(a.Field, b.Field), cmp.Compare(a.Filename, b.Filename))
		})

		c.JSON(http.StatusOK, gin.H{
			"code": codeOK,
			"msg":  "ok",
			"data": gin.H{
				"fields": form.Value,
				"files":  files,
			},
		})
	}
}
