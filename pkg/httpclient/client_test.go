package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	// Name はテスト用の名前フィールド。
	Name string `json:"name"`
	// Value はテスト用の値フィールド。
	Value int `json:"value"`
}

// newRecordingServer は受け取ったリクエストを記録し、固定のJSONを返すテストサーバーを生成する。
func newRecordingServer(t *testing.T, received *testRequest, status int, respBody string) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Method = r.Method
		received.Path = r.URL.Path
		received.Body, _ = io.ReadAll(r.Body)
		received.Headers = r.Header.Clone()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("デフォルトのタイムアウトが30秒であること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080/")
		if client.baseURL != "http://localhost:8080" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:8080")
		}
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("オプションが適用されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", WithTimeout(0), WithOrigin("http://admin.local"))
		if client.httpClient.Timeout != 0 {
			t.Errorf("Timeout = %v, want 0", client.httpClient.Timeout)
		}
		if client.origin != "http://admin.local" {
			t.Errorf("origin = %q, want %q", client.origin, "http://admin.local")
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{"name":"response","value":200}`)

		client := New(ts.URL)
		var result testPayload
		if err := client.PostJSON(context.Background(), "/admin/login", testPayload{Name: "request", Value: 100}, &result); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/admin/login" {
			t.Errorf("Path = %q, want %q", received.Path, "/admin/login")
		}
		var sent testPayload
		if err := json.Unmarshal(received.Body, &sent); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sent.Name != "request" || sent.Value != 100 {
			t.Errorf("sent = %+v, want {request 100}", sent)
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if got := received.Headers.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want %q", got, "application/json")
		}
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("result = %+v, want {response 200}", result)
		}
	})

	t.Run("bodyがnilの場合ボディとContent-Typeを送らないこと", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{}`)

		client := New(ts.URL)
		if err := client.PostJSON(context.Background(), "/admin/logout", nil, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if len(received.Body) != 0 {
			t.Errorf("ボディが送信された: %q", string(received.Body))
		}
		if got := received.Headers.Get("Content-Type"); got != "" {
			t.Errorf("Content-Type = %q, want empty", got)
		}
	})

	t.Run("2xx以外はStatusErrorとしてボディを保持すること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusUnauthorized, `{"code":401,"msg":"unauthorized"}`)

		client := New(ts.URL)
		err := client.PostJSON(context.Background(), "/admin/logout", nil, nil)

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("StatusErrorを返すべき: %v", err)
		}
		if statusErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusUnauthorized)
		}
		if string(statusErr.Body) != `{"code":401,"msg":"unauthorized"}` {
			t.Errorf("Body = %q", string(statusErr.Body))
		}
	})

	t.Run("シリアライズ不可能なボディでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		client := New("http://127.0.0.1:1")
		if err := client.PostJSON(context.Background(), "/x", make(chan int), nil); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{}`)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := New(ts.URL).PostJSON(ctx, "/x", testPayload{}, nil); err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("GETリクエストにボディが含まれないこと", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{"name":"get","value":42}`)

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/admin/profile", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if received.Method != http.MethodGet {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodGet)
		}
		if len(received.Body) != 0 {
			t.Errorf("GETリクエストにボディが含まれている: %q", string(received.Body))
		}
		if result.Value != 42 {
			t.Errorf("result.Value = %d, want 42", result.Value)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{invalid json}`)

		var result testPayload
		if err := New(ts.URL).GetJSON(context.Background(), "/x", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("接続できないサーバーでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		var result testPayload
		if err := New("http://127.0.0.1:1").GetJSON(context.Background(), "/x", &result); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestDo はDo関数を検証する。
func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("任意のメソッドとContent-Typeで送信できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{"ok":true}`)

		var result map[string]bool
		err := New(ts.URL).Do(context.Background(), http.MethodPut, "/posts/1", strings.NewReader("title=x"), "application/x-www-form-urlencoded", &result)
		if err != nil {
			t.Fatalf("Do()でエラーが発生: %v", err)
		}
		if received.Method != http.MethodPut {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPut)
		}
		if string(received.Body) != "title=x" {
			t.Errorf("Body = %q, want %q", string(received.Body), "title=x")
		}
		if got := received.Headers.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", got)
		}
		if !result["ok"] {
			t.Errorf("result = %v", result)
		}
	})
}

// TestWithToken はコンテキスト経由のBearerトークン付与を検証する。
func TestWithToken(t *testing.T) {
	t.Parallel()

	t.Run("トークンがAuthorizationヘッダーに設定されること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := newRecordingServer(t, &received, http.StatusOK, `{}`)

		ctx := WithToken(context.Background(), "tok-123")
		if err := New(ts.URL).GetJSON(ctx, "/x", nil); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
		if got := received.Headers.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-123")
		}
	})

	t.Run("トークンが無い場合Authorizationヘッダーを付与しないこと", func(t *testing.T) {
		t.Parallel()

		for _, ctx := range []context.Context{context.Background(), WithToken(context.Background(), "")} {
			var received testRequest
			ts := newRecordingServer(t, &received, http.StatusOK, `{}`)

			if err := New(ts.URL).GetJSON(ctx, "/x", nil); err != nil {
				t.Fatalf("GetJSON()でエラーが発生: %v", err)
			}
			if _, ok := received.Headers["Authorization"]; ok {
				t.Error("Authorizationヘッダーが付与された")
			}
		}
	})
}

// TestWithOrigin はブラウザ同様のCORS検証を検証する。
func TestWithOrigin(t *testing.T) {
	t.Parallel()

	newServer := func(t *testing.T, allowOrigin string) *httptest.Server {
		t.Helper()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"origin":"` + r.Header.Get("Origin") + `"}`))
		}))
		t.Cleanup(ts.Close)
		return ts
	}

	t.Run("許可ヘッダーが無い場合ErrCORSBlockedが返ること", func(t *testing.T) {
		t.Parallel()

		ts := newServer(t, "")
		err := New(ts.URL, WithOrigin("http://admin.local")).GetJSON(context.Background(), "/x", nil)
		if !errors.Is(err, ErrCORSBlocked) {
			t.Fatalf("ErrCORSBlockedを返すべき: %v", err)
		}
	})

	t.Run("別オリジンのみ許可されている場合ErrCORSBlockedが返ること", func(t *testing.T) {
		t.Parallel()

		ts := newServer(t, "http://other.local")
		err := New(ts.URL, WithOrigin("http://admin.local")).GetJSON(context.Background(), "/x", nil)
		if !errors.Is(err, ErrCORSBlocked) {
			t.Fatalf("ErrCORSBlockedを返すべき: %v", err)
		}
	})

	t.Run("ワイルドカードまたは一致するオリジンなら成功すること", func(t *testing.T) {
		t.Parallel()

		for _, allow := range []string{"*", "http://admin.local"} {
			ts := newServer(t, allow)
			var result map[string]string
			if err := New(ts.URL, WithOrigin("http://admin.local")).GetJSON(context.Background(), "/x", &result); err != nil {
				t.Fatalf("allow=%q: GetJSON()でエラーが発生: %v", allow, err)
			}
			if result["origin"] != "http://admin.local" {
				t.Errorf("Originヘッダー = %q, want %q", result["origin"], "http://admin.local")
			}
		}
	})

	t.Run("オリジン未指定なら検証しないこと", func(t *testing.T) {
		t.Parallel()

		ts := newServer(t, "")
		if err := New(ts.URL).GetJSON(context.Background(), "/x", nil); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}
	})
}
