package middleware

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	panics := []struct {
		name  string
		value any
	}{
		{name: "文字列のパニック値で500が返ること", value: "テスト用パニック"},
		{name: "文字列以外のパニック値でも500が返ること", value: 42},
		{name: "error型のパニック値でも500が返ること", value: http.ErrAbortHandler},
	}
	for _, tt := range panics {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(Recovery())
			router.POST("/panic", func(_ *gin.Context) {
				panic(tt.value)
			})

			req := httptest.NewRequest(http.MethodPost, "/panic", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["error"] != MessageInternalError {
				t.Errorf("error = %q, want %q", body["error"], MessageInternalError)
			}
		})
	}

	t.Run("パニック後もサーバーが次のリクエストを処理できること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/panic", func(_ *gin.Context) {
			panic("パニック発生")
		})
		router.GET("/ok", okHandler)

		w1 := httptest.NewRecorder()
		router.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if w1.Code != http.StatusInternalServerError {
			t.Errorf("1回目のステータスコード = %d, want %d", w1.Code, http.StatusInternalServerError)
		}

		w2 := httptest.NewRecorder()
		router.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w2.Code != http.StatusOK {
			t.Errorf("2回目のステータスコード = %d, want %d", w2.Code, http.StatusOK)
		}
	})

	t.Run("書き込み済みレスポンスは上書きされないこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/partial", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("書き込み後のパニック")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/partial", nil))

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "partial" {
			t.Errorf("ボディ = %q, want %q", got, "partial")
		}
	})
}

// TestRecoveryLogsRequestID はパニックのログにリクエストIDが含まれることを検証する。
// 標準ロガーの出力先を差し替えるため並列実行しない。
func TestRecoveryLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(orig) })

	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery())
	router.GET("/panic", func(_ *gin.Context) {
		panic("ログ確認")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	id := w.Header().Get(HeaderRequestID)
	if id == "" {
		t.Fatal("X-Request-ID が設定されていない")
	}
	if !strings.Contains(buf.String(), "request_id="+id) {
		t.Errorf("ログにリクエストIDが含まれていない: %q", buf.String())
	}
}
