package devupstream

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/nao1215/cmsadmin/pkg/event"
)

// appendEvent は監査イベントを保存する。
func appendEvent(ctx context.Context, db *sql.DB, ev *event.Event) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO audit_events (id, subject, event_type, data, created_at) VALUES (?, ?, ?, ?, ?)",
		ev.ID, ev.Subject, string(ev.EventType), string(ev.Data), ev.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("監査イベントの保存に失敗: %w", err)
	}
	return nil
}

// listEvents は記録の新しい順に最大limit件の監査イベントを返す。
// 種別とデータが一致しない行はログに残して読み飛ばす。
func listEvents(ctx context.Context, db *sql.DB, limit int) ([]event.Event, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, subject, event_type, data, created_at FROM audit_events ORDER BY rowid DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("監査イベントの取得に失敗: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			ev        event.Event
			eventType string
			data      string
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.Subject, &eventType, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("監査イベントの読み込みに失敗: %w", err)
		}
		ev.EventType = event.Type(eventType)
		ev.Data = []byte(data)
		ev.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("監査イベントの日時のパースに失敗: %w", err)
		}
		if err := ev.Validate(); err != nil {
			log.Printf("[DevUpstream] 不正な監査イベントを読み飛ばします: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// record は監査イベントを生成して保存する。失敗はログに残すだけで応答には影響させない。
func (s *Server) record(ctx context.Context, subject string, eventType event.Type, data any) {
	ev, err := event.New(subject, eventType, data)
	if err == nil {
		err = ev.Validate()
	}
	if err != nil {
		log.Printf("[DevUpstream] 監査イベントの生成に失敗: %v", err)
		return
	}
	if err := appendEvent(ctx, s.db, ev); err != nil {
		log.Printf("[DevUpstream] %v", err)
	}
}
