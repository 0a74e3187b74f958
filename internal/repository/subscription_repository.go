package repository

import (
	"context"

	"app/internal/domain/model"
)

type SubscriptionRepository interface {
	FindByStoreID(ctx context.Context, storeID int64) (model.Subscription, bool, error)
	FindByProviderSubscriptionID(ctx context.Context, providerSubID string) (model.Subscription, bool, error)
	// store_idのunique制約に乗せたupsert。
	Upsert(ctx context.Context, sub model.Subscription) error
}
