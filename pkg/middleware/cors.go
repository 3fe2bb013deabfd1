package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	// corsAllowMethods はプリフライトで許可するHTTPメソッド。
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	// corsAllowHeaders はプリフライトで許可するリクエストヘッダー。
	corsAllowHeaders = "Content-Type, Authorization"
	// AnyOrigin は全オリジンを許可するワイルドカード。
	AnyOrigin = "*"
)

// CORS はクロスオリジンリクエストを許可するGinミドルウェアを返す。
//
// allowedOrigins に AnyOrigin が含まれる場合は全レスポンスに
// "Access-Control-Allow-Origin: *" を付与する。それ以外は一致したオリジンのみ許可する。
// ヘッダーはハンドラ実行前に設定するため、エラーレスポンスやパニック時の500にも付与される。
// プリフライト（OPTIONS）への応答はルート側のハンドラが担当する。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	wildcard := false
	originsSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == AnyOrigin {
			wildcard = true
		}
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		allowOrigin := ""
		if wildcard {
			allowOrigin = AnyOrigin
		} else if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := originsSet[origin]; ok {
				allowOrigin = origin
				c.Writer.Header().Add("Vary", "Origin")
			}
		}

		if allowOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowOrigin)
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		}
		c.Next()
	}
}
