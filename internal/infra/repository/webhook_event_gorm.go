package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventGormRepository struct {
	db *gorm.DB
}

func NewWebhookEventGormRepository(db *gorm.DB) *WebhookEventGormRepository {
	return &WebhookEventGormRepository{db: db}
}

func (r *WebhookEventGormRepository) InsertIfNew(ctx context.Context, ev model.WebhookEvent) (model.WebhookEvent, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
		DoNothing: true,
	}).Create(&ev)
	if res.Error != nil {
		return model.WebhookEvent{}, false, res.Error
	}

	if res.RowsAffected == 0 {
		// 受信済み。既存行を返す。
		var existing model.WebhookEvent
		err := r.db.WithContext(ctx).
			Where("provider = ? AND event_id = ?", ev.Provider, ev.EventID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.WebhookEvent{}, false, repo.ErrNotFound
		}
		if err != nil {
			return model.WebhookEvent{}, false, err
		}
		return existing, false, nil
	}

	return ev, true, nil
}

func (r *WebhookEventGormRepository) MarkProcessed(ctx context.Context, eventRowID int64, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", eventRowID).
		Update("processed_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *WebhookEventGormRepository) MarkFailed(ctx context.Context, eventRowID int64, message string) error {
	res := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("id = ?", eventRowID).
		Update("processing_error", message)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *WebhookEventGormRepository) ListFailed(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var items []model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("processing_error <> ''").
		Order("id desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.WebhookEvent{}, err
	}
	return items, nil
}
