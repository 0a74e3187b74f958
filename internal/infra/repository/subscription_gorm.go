package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionGormRepository struct {
	db *gorm.DB
}

func NewSubscriptionGormRepository(db *gorm.DB) *SubscriptionGormRepository {
	return &SubscriptionGormRepository{db: db}
}

func (r *SubscriptionGormRepository) FindByStoreID(ctx context.Context, storeID int64) (model.Subscription, bool, error) {
	var s model.Subscription
	err := r.db.WithContext(ctx).Where("store_id = ?", storeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Subscription{}, false, nil
	}
	if err != nil {
		return model.Subscription{}, false, err
	}
	return s, true, nil
}

func (r *SubscriptionGormRepository) FindByProviderSubscriptionID(ctx context.Context, providerSubID string) (model.Subscription, bool, error) {
	var s model.Subscription
	err := r.db.WithContext(ctx).
		Where("provider_subscription_id = ?", providerSubID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Subscription{}, false, nil
	}
	if err != nil {
		return model.Subscription{}, false, err
	}
	return s, true, nil
}

func (r *SubscriptionGormRepository) Upsert(ctx context.Context, sub model.Subscription) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "store_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"provider_subscription_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(&sub).Error
}
