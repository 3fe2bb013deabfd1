package session

// 永続化ストアのキー。
const (
	keyAuthenticated = "isAuthenticated"
	keyUser          = "user"
	keyToken         = "token"
)

// authenticatedFlag は認証済みを表す永続化フラグの値。
const authenticatedFlag = "true"

// ユーザーに表示するメッセージ。
const (
	// MessageTryAgainLater は通信エラー等の予期しない失敗時のメッセージ。
	MessageTryAgainLater = "ログインに失敗しました。しばらくしてから再度お試しください"
	// MessageLoginFailed は上流がメッセージなしで失敗を返した場合のメッセージ。
	MessageLoginFailed = "ログインに失敗しました"
	// MessageCredentialsRequired はユーザー名かパスワードが空の場合のメッセージ。
	MessageCredentialsRequired = "ユーザー名とパスワードを入力してください"
)

// User はログイン中の管理者のプロフィール。
type User struct {
	// ID は管理者の識別子。
	ID int64 `json:"id"`
	// Username はログイン名。
	Username string `json:"username"`
	// DisplayName は画面に表示する名前。
	DisplayName string `json:"displayName"`
	// Role は権限ロール。
	Role string `json:"role"`
	// Status はアカウント状態。
	Status string `json:"status"`
}

// valid はセッションとして保持できるプロフィールかを返す。
func (u *User) valid() bool {
	return u != nil && u.ID != 0 && u.Username != ""
}

// State はセッションの読み取り専用スナップショット。
// IsAuthenticated が true なら User は非nilで、トークンが永続化されている。
type State struct {
	// User はログイン中の管理者。未認証ならnil。
	User *User
	// IsAuthenticated は認証済みかどうか。
	IsAuthenticated bool
	// Loading は起動時の復元が完了していない間true。
	Loading bool
	// LogoutLoading はログアウト処理中true。
	LogoutLoading bool
}

// LoginResult はログインの結果。
// 失敗時は Message に利用者へ表示できるメッセージが入る。
type LoginResult struct {
	Success bool
	Message string
}

func loginFailure(msg string) LoginResult {
	return LoginResult{Success: false, Message: msg}
}
