package session

import (
	"errors"
	"strings"

	"github.com/nao1215/cmsadmin/pkg/httpclient"
)

// ErrNotAuthenticated は認証済みセッションが必要な操作を未認証で呼んだことを表す。
var ErrNotAuthenticated = errors.New("ログインしていません")

// errInconsistentSession は永続化データの一部だけが残っていることを表す。
var errInconsistentSession = errors.New("永続化されたセッションが不整合です")

// corsErrorPatterns はCORS起因の失敗を示すメッセージの断片（小文字）。
var corsErrorPatterns = []string{
	"cors",
	"cross-origin",
	"access-control-allow-origin",
	"failed to fetch",
}

// IsCORSError はerrがクロスオリジンの遮断による失敗かを判定する。
// ステータスコードではなくメッセージのパターンで判定する。
func IsCORSError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, httpclient.ErrCORSBlocked) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range corsErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
