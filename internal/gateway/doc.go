// Package gateway はCMS管理画面向けのAPIプロキシゲートウェイを提供する。
//
// /api/ 以下の任意パスへのリクエストを、メソッド・パス・クエリ・ボディを
// 保ったまま固定の上流オリジンへ転送し、上流のステータスとJSONボディを
// そのまま返す。転送するリクエストヘッダーはAuthorizationのみで、
// それ以外のクライアントヘッダーは上流へ渡さない。
//
// ゲートウェイは状態を持たない。リクエスト間で共有するのは不変の設定と
// 並行利用可能な *http.Client だけである。
package gateway
