package model

import "time"

// 受信したwebhookの記録。(provider, event_id)のunique制約が
// 二重配送の重複排除そのもの。ProcessingErrorが入った行は
// リトライしても直らないもの（dead letter）で、管理画面から拾う。
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1" json:"provider"`
	EventID         string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2" json:"event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Payload         string     `gorm:"type:text;not null" json:"-"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
}
