package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 決済IDでカートを引く。Cart Closerの入口。
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Cart, error)
	AttachPaymentIntent(ctx context.Context, cartID int64, paymentIntentID string) error
	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error
	Clear(ctx context.Context, cartID int64) error
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
}
