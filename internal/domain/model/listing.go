package model

import "time"

// 非公開にした理由。カスケードで落としたものだけ復活させるために区別する。
type DeactivatedReason string

const (
	ReasonNone         DeactivatedReason = ""
	ReasonSeller       DeactivatedReason = "SELLER"
	ReasonSubscription DeactivatedReason = "SUBSCRIPTION"
)

// 販売対象のリスト。サブスクが有効なストアだけ公開できる。
type Listing struct {
	ID                int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID           int64             `gorm:"not null;index" json:"store_id"`
	Name              string            `gorm:"type:varchar(255);not null" json:"name"`
	Description       string            `gorm:"type:text" json:"description"`
	Price             int64             `gorm:"not null" json:"price"`
	IsActive          bool              `gorm:"not null;default:false;index" json:"is_active"`
	DeactivatedReason DeactivatedReason `gorm:"type:varchar(20);not null;default:''" json:"deactivated_reason"`
	CreatedAt         time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
