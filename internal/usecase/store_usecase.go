package usecase

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type StoreUsecase struct {
	storeRepo repo.StoreRepository
}

func NewStoreUsecase(storeRepo repo.StoreRepository) *StoreUsecase {
	return &StoreUsecase{storeRepo: storeRepo}
}

type CreateStoreInput struct {
	Name string
	Slug string
}

type StoreOutput struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateStore はストア開設。1ユーザー1ストア。
func (u *StoreUsecase) CreateStore(ctx context.Context, userID int64, in CreateStoreInput) (StoreOutput, error) {
	if userID <= 0 {
		return StoreOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return StoreOutput{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" || len(slug) > 255 || !slugPattern.MatchString(slug) {
		return StoreOutput{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	// 既にストアを持っていたら409
	if _, err := u.storeRepo.FindByUserID(ctx, userID); err == nil {
		return StoreOutput{}, NewHTTPError(http.StatusConflict, "store already exists")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return StoreOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// slug重複も409
	if _, err := u.storeRepo.FindBySlug(ctx, slug); err == nil {
		return StoreOutput{}, NewHTTPError(http.StatusConflict, "slug already taken")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return StoreOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	id, err := u.storeRepo.Create(ctx, model.Store{
		UserID: userID,
		Name:   name,
		Slug:   slug,
	})
	if err != nil {
		return StoreOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return StoreOutput{ID: id, Name: name, Slug: slug}, nil
}

// GetMyStore は自分のストア。
func (u *StoreUsecase) GetMyStore(ctx context.Context, userID int64) (StoreOutput, error) {
	if userID <= 0 {
		return StoreOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return StoreOutput{}, NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return StoreOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return StoreOutput{ID: store.ID, Name: store.Name, Slug: store.Slug}, nil
}
