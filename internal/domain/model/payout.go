package model

import "time"

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusPaid    PayoutStatus = "PAID"
	PayoutStatusFailed  PayoutStatus = "FAILED"
)

// 注文1件につき出品者への支払い1件。金額はすべてセント単位。
// PENDING→PAIDは管理者のmark-paidだけ。BatchIDは同じmark-paidで
// まとめて払った行の印で、undoはこの単位で戻す。
type Payout struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID      int64        `gorm:"not null;index" json:"store_id"`
	OrderID      int64        `gorm:"not null;uniqueIndex" json:"order_id"`
	Amount       int64        `gorm:"not null" json:"amount"`
	PlatformFee  int64        `gorm:"not null" json:"platform_fee"`
	ProcessorFee int64        `gorm:"not null" json:"processor_fee"`
	Status       PayoutStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BatchID      *string      `gorm:"type:uuid;index" json:"batch_id,omitempty"`
	PaidAt       *time.Time   `json:"paid_at,omitempty"`
	CreatedAt    time.Time    `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
