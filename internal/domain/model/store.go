package model

import "time"

// 出品者のストア。1ユーザーにつき1つ。
type Store struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	Name            string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	StripeAccountID string    `gorm:"type:varchar(191)" json:"-"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
