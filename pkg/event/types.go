// Package event は管理者の認証操作を記録する監査イベントを定義する。
package event

import (
	"encoding/json"
	"time"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeLoginSucceeded はログインに成功しトークンが発行されたことを表す。
	TypeLoginSucceeded Type = "LoginSucceeded"
	// TypeLoginFailed はログインが拒否されたことを表す。
	TypeLoginFailed Type = "LoginFailed"
	// TypeLoggedOut はトークンが失効されたことを表す。
	TypeLoggedOut Type = "LoggedOut"
	// TypeFallbackLogout は資格情報なしのログアウトを受け付けたことを表す。
	TypeFallbackLogout Type = "FallbackLogout"
)

// Event は不変の監査イベントレコード。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Subject は操作の対象となった管理者のユーザー名。特定できない場合は空。
	Subject string `json:"subject"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// LoginSucceededData はLoginSucceededイベントのデータ。
type LoginSucceededData struct {
	// AdminID は管理者のID。
	AdminID int64 `json:"admin_id"`
	// TokenID は発行したトークンのjti。
	TokenID string `json:"token_id"`
}

// LoginFailedData はLoginFailedイベントのデータ。
type LoginFailedData struct {
	// Code は応答した失敗コード。
	Code int `json:"code"`
	// Reason は拒否の理由。
	Reason string `json:"reason"`
}

// LoggedOutData はLoggedOutイベントのデータ。
type LoggedOutData struct {
	// TokenID は失効したトークンのjti。
	TokenID string `json:"token_id"`
}

// FallbackLogoutData はFallbackLogoutイベントのデータ。
type FallbackLogoutData struct {
	// RemoteAddr は要求元のアドレス。
	RemoteAddr string `json:"remote_addr"`
}
