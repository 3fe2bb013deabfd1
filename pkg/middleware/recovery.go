package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MessageInternalError はクライアントに返す汎用的なエラーメッセージ。
// 内部エラーの詳細はログにのみ出力する。
const MessageInternalError = "内部サーバーエラーが発生しました"

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック値はリクエストIDと共にログに出力し、クライアントには汎用的な500を返す。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Printf("[PANIC] request_id=%s %s %s: %v", GetRequestID(c), c.Request.Method, c.Request.URL.Path, r)
			if c.Writer.Written() {
				// ボディ送信後は書き換えられない
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": MessageInternalError,
			})
		}()
		c.Next()
	}
}
