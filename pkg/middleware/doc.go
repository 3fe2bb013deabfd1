// Package middleware はGinベースのHTTPサーバーで使用する共通ミドルウェアを提供する。
//
// CORSヘッダーの付与、リクエストIDの採番、パニックリカバリ、
// JWTの発行と検証を含む。gatewayとdevupstreamの両方で使用する。
package middleware
