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

type PayoutGormRepository struct {
	db *gorm.DB
}

func NewPayoutGormRepository(db *gorm.DB) *PayoutGormRepository {
	return &PayoutGormRepository{db: db}
}

func (r *PayoutGormRepository) CreateIgnoreDuplicate(ctx context.Context, payout model.Payout) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&payout)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PayoutGormRepository) SumByStatus(ctx context.Context, storeID int64, status model.PayoutStatus) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("store_id = ? AND status = ?", storeID, status).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *PayoutGormRepository) ListByStoreID(ctx context.Context, storeID int64) ([]model.Payout, error) {
	var items []model.Payout
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("id desc").
		Find(&items).Error
	if err != nil {
		return []model.Payout{}, err
	}
	return items, nil
}

func (r *PayoutGormRepository) FindByID(ctx context.Context, payoutID int64) (model.Payout, error) {
	var p model.Payout
	err := r.db.WithContext(ctx).Where("id = ?", payoutID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payout{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Payout{}, err
	}
	return p, nil
}

func (r *PayoutGormRepository) MarkAllPendingPaid(ctx context.Context, storeID int64, batchID string, paidAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("store_id = ? AND status = ?", storeID, model.PayoutStatusPending).
		Updates(map[string]interface{}{
			"status":   model.PayoutStatusPaid,
			"batch_id": batchID,
			"paid_at":  paidAt,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PayoutGormRepository) LatestPaidBatch(ctx context.Context, storeID int64) (string, error) {
	var p model.Payout
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND batch_id IS NOT NULL", storeID, model.PayoutStatusPaid).
		Order("paid_at desc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if p.BatchID == nil {
		return "", repo.ErrNotFound
	}
	return *p.BatchID, nil
}

func (r *PayoutGormRepository) RevertBatch(ctx context.Context, storeID int64, batchID string) (int64, error) {
	// 直近バッチの行だけ戻す。他のバッチを巻き込まない。
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("store_id = ? AND batch_id = ? AND status = ?", storeID, batchID, model.PayoutStatusPaid).
		Updates(map[string]interface{}{
			"status":   model.PayoutStatusPending,
			"batch_id": nil,
			"paid_at":  nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PayoutGormRepository) UpdateStatus(ctx context.Context, payoutID int64, status model.PayoutStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ?", payoutID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
