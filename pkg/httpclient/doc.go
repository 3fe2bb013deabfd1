// Package httpclient はゲートウェイや上流APIを呼び出すJSON HTTPクライアントを提供する。
//
// Bearerトークンはコンテキスト経由で付与する。WithOrigin を指定すると
// ブラウザと同様にレスポンスのCORSヘッダーを検証し、許可されていなければ
// ErrCORSBlocked を返す。
package httpclient
