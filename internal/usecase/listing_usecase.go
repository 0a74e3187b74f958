package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ListingUsecase はリスティングの作成と公開/非公開を扱う。
// 公開できるのはサブスクがACTIVEなストアだけ。
type ListingUsecase struct {
	listingRepo repo.ListingRepository
	storeRepo   repo.StoreRepository
	subRepo     repo.SubscriptionRepository
}

func NewListingUsecase(
	listingRepo repo.ListingRepository,
	storeRepo repo.StoreRepository,
	subRepo repo.SubscriptionRepository,
) *ListingUsecase {
	return &ListingUsecase{
		listingRepo: listingRepo,
		storeRepo:   storeRepo,
		subRepo:     subRepo,
	}
}

type CreateListingInput struct {
	Name        string
	Description string
	Price       int64
}

type ListingOutput struct {
	ID          int64  `json:"id"`
	StoreID     int64  `json:"store_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	IsActive    bool   `json:"is_active"`
}

// CreateListing は下書きとして作る。公開は別操作。
func (u *ListingUsecase) CreateListing(ctx context.Context, userID int64, in CreateListingInput) (ListingOutput, error) {
	if userID <= 0 {
		return ListingOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 255 {
		return ListingOutput{}, NewHTTPError(http.StatusBadRequest, "invalid name")
	}
	if in.Price <= 0 {
		return ListingOutput{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ListingOutput{}, NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return ListingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listing := model.Listing{
		StoreID:           store.ID,
		Name:              name,
		Description:       in.Description,
		Price:             in.Price,
		IsActive:          false,
		DeactivatedReason: model.ReasonSeller,
	}
	id, err := u.listingRepo.Create(ctx, listing)
	if err != nil {
		return ListingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listing.ID = id
	return toListingOutput(listing), nil
}

// ActivateListing は公開。サブスクがACTIVEでなければ拒否。
func (u *ListingUsecase) ActivateListing(ctx context.Context, userID int64, listingID int64) (ListingOutput, error) {
	listing, err := u.findOwnedListing(ctx, userID, listingID)
	if err != nil {
		return ListingOutput{}, err
	}

	sub, found, err := u.subRepo.FindByStoreID(ctx, listing.StoreID)
	if err != nil {
		return ListingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found || sub.Status != model.SubscriptionStatusActive {
		return ListingOutput{}, NewHTTPError(http.StatusPaymentRequired, "subscription not active")
	}

	if err := u.listingRepo.SetActive(ctx, listingID, true, model.ReasonNone); err != nil {
		return ListingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listing.IsActive = true
	listing.DeactivatedReason = model.ReasonNone
	return toListingOutput(listing), nil
}

// DeactivateListing は出品者による非公開。理由をSELLERで刻むので
// サブスク復帰カスケードでは復活しない。
func (u *ListingUsecase) DeactivateListing(ctx context.Context, userID int64, listingID int64) (ListingOutput, error) {
	listing, err := u.findOwnedListing(ctx, userID, listingID)
	if err != nil {
		return ListingOutput{}, err
	}

	if err := u.listingRepo.SetActive(ctx, listingID, false, model.ReasonSeller); err != nil {
		return ListingOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listing.IsActive = false
	listing.DeactivatedReason = model.ReasonSeller
	return toListingOutput(listing), nil
}

// ListMine は自ストアの全リスティング（下書き含む）。
func (u *ListingUsecase) ListMine(ctx context.Context, userID int64) ([]ListingOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listings, err := u.listingRepo.ListByStoreID(ctx, store.ID, false)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]ListingOutput, 0, len(listings))
	for _, l := range listings {
		outs = append(outs, toListingOutput(l))
	}
	return outs, nil
}

// ListPublicBySlug はストアの公開中リスティングだけ返す。
func (u *ListingUsecase) ListPublicBySlug(ctx context.Context, slug string) ([]ListingOutput, error) {
	store, err := u.storeRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	listings, err := u.listingRepo.ListByStoreID(ctx, store.ID, true)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]ListingOutput, 0, len(listings))
	for _, l := range listings {
		outs = append(outs, toListingOutput(l))
	}
	return outs, nil
}

func (u *ListingUsecase) findOwnedListing(ctx context.Context, userID int64, listingID int64) (model.Listing, error) {
	if userID <= 0 {
		return model.Listing{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if listingID <= 0 {
		return model.Listing{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	listing, err := u.listingRepo.FindByID(ctx, listingID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Listing{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Listing{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Listing{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Listing{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 他人のリスティングは「存在しない扱い」にする
	if listing.StoreID != store.ID {
		return model.Listing{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return listing, nil
}

func toListingOutput(l model.Listing) ListingOutput {
	return ListingOutput{
		ID:          l.ID,
		StoreID:     l.StoreID,
		Name:        l.Name,
		Description: l.Description,
		Price:       l.Price,
		IsActive:    l.IsActive,
	}
}
