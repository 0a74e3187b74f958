package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type StoreGormRepository struct {
	db *gorm.DB
}

func NewStoreGormRepository(db *gorm.DB) *StoreGormRepository {
	return &StoreGormRepository{db: db}
}

func (r *StoreGormRepository) Create(ctx context.Context, store model.Store) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&store).Error; err != nil {
		return 0, err
	}
	return store.ID, nil
}

func (r *StoreGormRepository) FindByID(ctx context.Context, storeID int64) (model.Store, error) {
	var s model.Store
	err := r.db.WithContext(ctx).Where("id = ?", storeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Store{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}
	return s, nil
}

func (r *StoreGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Store, error) {
	var s model.Store
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Store{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}
	return s, nil
}

func (r *StoreGormRepository) FindBySlug(ctx context.Context, slug string) (model.Store, error) {
	var s model.Store
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Store{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Store{}, err
	}
	return s, nil
}
