package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
)

// ストアの課金状態。webhookからのみ更新され、
// リスティング公開可否の唯一のソース。
type Subscription struct {
	ID                     int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID                int64              `gorm:"not null;uniqueIndex" json:"store_id"`
	ProviderSubscriptionID string             `gorm:"type:varchar(191);index" json:"-"`
	Status                 SubscriptionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CurrentPeriodStart     *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CreatedAt              time.Time          `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time          `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
