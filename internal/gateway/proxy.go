package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/cmsadmin/pkg/middleware"
)

const (
	// mimeJSON はJSONボディのメディアタイプ。
	mimeJSON = "application/json"
	// mimeMultipart はマルチパートフォームのメディアタイプ。
	mimeMultipart = "multipart/form-data"
	// relayContentType はクライアントへ返すレスポンスのContent-Type。
	relayContentType = "application/json; charset=utf-8"
)

// errNonJSONResponse は上流のレスポンスボディがJSONでないことを表す。
var errNonJSONResponse = errors.New("上流のレスポンスがJSONではありません")

// errDotSegment はパスに "." または ".." のセグメントが含まれることを表す。
var errDotSegment = errors.New("パスに . または .. のセグメントが含まれています")

// messageNotFound は転送を拒否したパスに返すメッセージ。
const messageNotFound = "リソースが見つかりません"

// handleForward は /api/*path へのリクエストを上流へ転送するハンドラを返す。
func (s *Server) handleForward() gin.HandlerFunc {
	return func(c *gin.Context) {
		target, err := s.upstreamURL(c.Param("path"), c.Request.URL.RawQuery)
		if err != nil {
			log.Printf("[Gateway] request_id=%s 転送を拒否: method=%s path=%q error=%v",
				middleware.GetRequestID(c), c.Request.Method, c.Param("path"), err)
			c.JSON(http.StatusNotFound, gin.H{"error": messageNotFound})
			return
		}

		body, contentType, err := readForwardBody(c)
		if err != nil {
			s.fail(c, err)
			return
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, body)
		if err != nil {
			s.fail(c, fmt.Errorf("プロキシリクエストの作成に失敗: %w", err))
			return
		}

		// ヘッダーは許可リスト方式。Cookie等のクライアントヘッダーは転送しない。
		req.Header.Set("Accept", mimeJSON)
		if auth := c.GetHeader("Authorization"); auth != "" {
			req.Header.Set("Authorization", auth)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		s.relay(c, req)
	}
}

// readForwardBody はメソッドとContent-Typeに応じて転送するボディを組み立てる。
// ボディを送らない場合はnilを返す。
func readForwardBody(c *gin.Context) (io.Reader, string, error) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodDelete:
		return nil, "", nil
	}

	switch c.ContentType() {
	case mimeJSON:
		raw, err := c.GetRawData()
		if err != nil {
			return nil, "", fmt.Errorf("リクエストボディの読み取りに失敗: %w", err)
		}
		return bytes.NewReader(raw), mimeJSON, nil
	case mimeMultipart:
		return reencodeMultipart(c)
	default:
		raw, err := c.GetRawData()
		if err != nil {
			return nil, "", fmt.Errorf("リクエストボディの読み取りに失敗: %w", err)
		}
		if len(raw) == 0 {
			return nil, "", nil
		}
		// JSON・マルチパート以外は元のContent-Typeのまま素通しする
		return bytes.NewReader(raw), c.GetHeader("Content-Type"), nil
	}
}

// reencodeMultipart はマルチパートフォームをデコードし、新しいマルチパートボディに詰め直す。
// ファイルパートは元のパートヘッダーと中身をそのまま使う。
func reencodeMultipart(c *gin.Context) (io.Reader, string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, "", fmt.Errorf("マルチパートフォームのデコードに失敗: %w", err)
	}
	defer func() { _ = form.RemoveAll() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range slices.Sorted(maps.Keys(form.Value)) {
		for _, v := range form.Value[name] {
			if err := w.WriteField(name, v); err != nil {
				return nil, "", fmt.Errorf("フィールド %q の書き込みに失敗: %w", name, err)
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(form.File)) {
		for _, fh := range form.File[name] {
			if err := copyFilePart(w, fh); err != nil {
				return nil, "", fmt.Errorf("ファイル %q の書き込みに失敗: %w", fh.Filename, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("マルチパートボディの終端に失敗: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func copyFilePart(w *multipart.Writer, fh *multipart.FileHeader) error {
	part, err := w.CreatePart(fh.Header)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(part, f)
	return err
}

// upstreamURL は上流のURLを組み立てる。
// 空のパスセグメントは詰め、クエリ文字列は再エンコードせずにそのまま付ける。
// "." と ".." のセグメントは上流のベースパスの外を指せるため拒否する。
func (s *Server) upstreamURL(wildcard, rawQuery string) (string, error) {
	segments := strings.FieldsFunc(wildcard, func(r rune) bool { return r == '/' })
	if slices.ContainsFunc(segments, func(seg string) bool { return seg == "." || seg == ".." }) {
		return "", errDotSegment
	}

	u := *s.upstream
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(segments, "/")
	u.RawPath = ""
	u.RawQuery = rawQuery
	u.Fragment = ""
	return u.String(), nil
}

// relay は上流へリクエストを送り、ステータスとJSONボディをそのまま返す。
// リトライはしない。
func (s *Server) relay(c *gin.Context, req *http.Request) {
	resp, err := s.client.Do(req)
	if err != nil {
		s.fail(c, fmt.Errorf("上流サービスとの通信に失敗: %w", err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.fail(c, fmt.Errorf("上流レスポンスの読み取りに失敗: %w", err))
		return
	}
	if !json.Valid(body) {
		s.fail(c, fmt.Errorf("status=%d: %w", resp.StatusCode, errNonJSONResponse))
		return
	}

	c.Data(resp.StatusCode, relayContentType, body)
}

// fail は内部エラーをログに出力し、汎用的な500を返す。
// エラーの詳細はクライアントに返さない。
func (s *Server) fail(c *gin.Context, err error) {
	log.Printf("[Gateway] request_id=%s プロキシエラー: method=%s path=%s error=%v",
		middleware.GetRequestID(c), c.Request.Method, c.Param("path"), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
}
