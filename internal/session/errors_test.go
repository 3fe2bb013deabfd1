package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nao1215/cmsadmin/pkg/httpclient"
)

func TestIsCORSError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nilはCORSエラーではない", err: nil, want: false},
		{name: "ErrCORSBlockedをラップしたエラー", err: fmt.Errorf("POST /x: %w", httpclient.ErrCORSBlocked), want: true},
		{name: "CORSを含むメッセージ", err: errors.New("request blocked by CORS"), want: true},
		{name: "Failed to fetch", err: errors.New("TypeError: Failed to fetch"), want: true},
		{name: "cross-origin", err: errors.New("Cross-Origin Request Blocked"), want: true},
		{name: "ステータスエラー", err: &httpclient.StatusError{StatusCode: 401, Body: []byte(`{"error":"unauthorized"}`)}, want: false},
		{name: "接続拒否", err: errors.New("dial tcp: connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsCORSError(tt.err); got != tt.want {
				t.Errorf("IsCORSError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
