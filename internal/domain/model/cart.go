package model

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
	CartStatusAbandoned  CartStatus = "ABANDONED"
)

// 1ユーザーにつきACTIVEは1つ。
// CHECKED_OUTにした時点で明細はクリアし、以後変更不可。
type Cart struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          *int64     `gorm:"index" json:"user_id,omitempty"`
	Status          CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentIntentID string     `gorm:"type:varchar(191);index" json:"-"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
