package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// 決済1件につき注文は1件。payment_intent_idのunique制約で保証する。
// OrderNumberはストアごとの連番（表示用）。
type Order struct {
	ID              int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID         int64       `gorm:"not null;index;uniqueIndex:ux_orders_store_number,priority:1" json:"store_id"`
	OrderNumber     int64       `gorm:"not null;uniqueIndex:ux_orders_store_number,priority:2" json:"order_number"`
	UserID          *int64      `gorm:"index" json:"user_id,omitempty"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount     int64       `gorm:"not null" json:"total_amount"`
	PaymentIntentID string      `gorm:"type:varchar(191);not null;uniqueIndex" json:"-"`
	CreatedAt       time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
