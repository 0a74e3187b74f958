package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ListingGormRepository struct {
	db *gorm.DB
}

func NewListingGormRepository(db *gorm.DB) *ListingGormRepository {
	return &ListingGormRepository{db: db}
}

func (r *ListingGormRepository) Create(ctx context.Context, listing model.Listing) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&listing).Error; err != nil {
		return 0, err
	}
	return listing.ID, nil
}

func (r *ListingGormRepository) FindByID(ctx context.Context, listingID int64) (model.Listing, error) {
	var l model.Listing
	err := r.db.WithContext(ctx).Where("id = ?", listingID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Listing{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, err
	}
	return l, nil
}

func (r *ListingGormRepository) ListByStoreID(ctx context.Context, storeID int64, onlyActive bool) ([]model.Listing, error) {
	q := r.db.WithContext(ctx).Where("store_id = ?", storeID)
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}

	var items []model.Listing
	if err := q.Order("id asc").Find(&items).Error; err != nil {
		return []model.Listing{}, err
	}
	return items, nil
}

func (r *ListingGormRepository) SetActive(ctx context.Context, listingID int64, active bool, reason model.DeactivatedReason) error {
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("id = ?", listingID).
		Updates(map[string]interface{}{
			"is_active":          active,
			"deactivated_reason": reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ListingGormRepository) DeactivateActiveByStore(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error) {
	// 公開中の行だけ対象。既に落ちていれば0行更新で冪等。
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Updates(map[string]interface{}{
			"is_active":          false,
			"deactivated_reason": reason,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *ListingGormRepository) ReactivateByReason(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error) {
	// 指定理由で落とした行だけ戻す。出品者の下書きは触らない。
	res := r.db.WithContext(ctx).Model(&model.Listing{}).
		Where("store_id = ? AND is_active = ? AND deactivated_reason = ?", storeID, false, reason).
		Updates(map[string]interface{}{
			"is_active":          true,
			"deactivated_reason": model.ReasonNone,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
