package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type WebhookEventRepository interface {
	// (provider, event_id)のunique制約に乗せたinsert-or-ignore。
	// 既に受信済みならcreated=falseで既存行を返す＝重複配送の排除。
	InsertIfNew(ctx context.Context, ev model.WebhookEvent) (model.WebhookEvent, bool, error)

	MarkProcessed(ctx context.Context, eventRowID int64, at time.Time) error
	// dead letter行き。リトライで直らない失敗の記録。
	MarkFailed(ctx context.Context, eventRowID int64, message string) error
	ListFailed(ctx context.Context, limit int) ([]model.WebhookEvent, error)
}
