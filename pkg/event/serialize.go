package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New は新しいイベントを生成する。
// dataにはイベント固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(subject string, eventType Type, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:        uuid.New().String(),
		Subject:   subject,
		EventType: eventType,
		Data:      jsonData,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

// ErrUnknownType は定義されていないイベント種別を表す。
var ErrUnknownType = errors.New("未知のイベント種別です")

// Validate はイベント種別に対応するデータ型でDataをデコードできるかを検証する。
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("イベントIDが空です")
	}

	var err error
	switch e.EventType {
	case TypeLoginSucceeded:
		_, err = DecodeData[LoginSucceededData](e)
	case TypeLoginFailed:
		_, err = DecodeData[LoginFailedData](e)
	case TypeLoggedOut:
		_, err = DecodeData[LoggedOutData](e)
	case TypeFallbackLogout:
		_, err = DecodeData[FallbackLogoutData](e)
	default:
		return fmt.Errorf("%q: %w", e.EventType, ErrUnknownType)
	}
	if err != nil {
		return fmt.Errorf("イベント %s (%s): %w", e.ID, e.EventType, err)
	}
	return nil
}
