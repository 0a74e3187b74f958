package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"app/internal/billing"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

// CheckoutUsecase はプロバイダのcheckoutセッションを作る。
type CheckoutUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	listingRepo  repo.ListingRepository
	storeRepo    repo.StoreRepository
	subRepo      repo.SubscriptionRepository
	client       billing.Client

	sellerPriceID string
	successURL    string
	cancelURL     string

	log *slog.Logger
}

func NewCheckoutUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	listingRepo repo.ListingRepository,
	storeRepo repo.StoreRepository,
	subRepo repo.SubscriptionRepository,
	client billing.Client,
	sellerPriceID string,
	successURL string,
	cancelURL string,
	log *slog.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		cartRepo:      cartRepo,
		cartItemRepo:  cartItemRepo,
		listingRepo:   listingRepo,
		storeRepo:     storeRepo,
		subRepo:       subRepo,
		client:        client,
		sellerPriceID: sellerPriceID,
		successURL:    successURL,
		cancelURL:     cancelURL,
		log:           log,
	}
}

type SessionOutput struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateSession はACTIVEカートから決済セッションを作る。
// webhook側でカート/ストアを引けるようmetadataに両IDを刻む。
func (u *CheckoutUsecase) CreateSession(ctx context.Context, userID int64) (SessionOutput, error) {
	if userID <= 0 {
		return SessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	if err != nil {
		return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(items) == 0 {
		return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	// 決済はストア単位。カート内の全リスティングが同じストアであること。
	var storeID int64
	lineItems := make([]billing.LineItem, 0, len(items))
	for _, it := range items {
		l, err := u.listingRepo.FindByID(ctx, it.ListingID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && !l.IsActive) {
			return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "listing no longer available")
		}
		if err != nil {
			return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if storeID == 0 {
			storeID = l.StoreID
		} else if storeID != l.StoreID {
			return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "cart spans multiple stores")
		}

		lineItems = append(lineItems, billing.LineItem{
			Name:       l.Name,
			UnitAmount: it.UnitPriceSnapshot,
			Quantity:   it.Quantity,
		})
	}

	sess, err := u.client.CreateCheckoutSession(ctx, billing.CheckoutSessionInput{
		LineItems:  lineItems,
		SuccessURL: u.successURL,
		CancelURL:  u.cancelURL,
		Metadata: map[string]string{
			billing.MetadataCartID:  strconv.FormatInt(cart.ID, 10),
			billing.MetadataStoreID: strconv.FormatInt(storeID, 10),
		},
	})
	if err != nil {
		u.log.ErrorContext(ctx, "checkout session creation failed", "error", err.Error())
		return SessionOutput{}, NewHTTPError(http.StatusBadGateway, "billing provider error")
	}

	// セッション作成時点で決済IDが分かればカートに紐付けておく。
	// 無ければcheckout.session.completedで補完される。
	if sess.PaymentIntentID != "" {
		if err := u.cartRepo.AttachPaymentIntent(ctx, cart.ID, sess.PaymentIntentID); err != nil {
			return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return SessionOutput{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreateSubscriptionSession は出品者向けサブスクの申込セッション。
func (u *CheckoutUsecase) CreateSubscriptionSession(ctx context.Context, userID int64) (SessionOutput, error) {
	if userID <= 0 {
		return SessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return SessionOutput{}, NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	sub, found, err := u.subRepo.FindByStoreID(ctx, store.ID)
	if err != nil {
		return SessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if found && sub.Status == model.SubscriptionStatusActive {
		return SessionOutput{}, NewHTTPError(http.StatusBadRequest, "subscription already active")
	}

	sess, err := u.client.CreateSubscriptionSession(ctx, billing.SubscriptionSessionInput{
		PriceID:    u.sellerPriceID,
		SuccessURL: u.successURL,
		CancelURL:  u.cancelURL,
		Metadata: map[string]string{
			billing.MetadataStoreID: strconv.FormatInt(store.ID, 10),
		},
	})
	if err != nil {
		u.log.ErrorContext(ctx, "subscription session creation failed",
			"store_id", store.ID, "error", err.Error())
		return SessionOutput{}, NewHTTPError(http.StatusBadGateway, "billing provider error")
	}

	return SessionOutput{SessionID: sess.ID, URL: sess.URL}, nil
}

// CancelSubscription は期末解約を予約する。即時には止めない。
// 実際の状態遷移はwebhook（customer.subscription.updated/deleted）で届く。
func (u *CheckoutUsecase) CancelSubscription(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	store, err := u.storeRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "store not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	sub, found, err := u.subRepo.FindByStoreID(ctx, store.ID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found || sub.ProviderSubscriptionID == "" {
		return NewHTTPError(http.StatusBadRequest, "no subscription to cancel")
	}

	if err := u.client.CancelAtPeriodEnd(ctx, sub.ProviderSubscriptionID); err != nil {
		u.log.ErrorContext(ctx, "subscription cancel failed",
			"store_id", store.ID, "error", err.Error())
		return NewHTTPError(http.StatusBadGateway, "billing provider error")
	}
	return nil
}
