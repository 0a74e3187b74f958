package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	carts         repo.CartRepository
	cartItems     repo.CartItemRepository
	payouts       repo.PayoutRepository
	subscriptions repo.SubscriptionRepository
	listings      repo.ListingRepository
	stores        repo.StoreRepository
	webhookEvents repo.WebhookEventRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                 { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository         { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository                   { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository           { return r.cartItems }
func (r *txReposGorm) Payouts() repo.PayoutRepository               { return r.payouts }
func (r *txReposGorm) Subscriptions() repo.SubscriptionRepository   { return r.subscriptions }
func (r *txReposGorm) Listings() repo.ListingRepository             { return r.listings }
func (r *txReposGorm) Stores() repo.StoreRepository                 { return r.stores }
func (r *txReposGorm) WebhookEvents() repo.WebhookEventRepository   { return r.webhookEvents }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:        NewOrderGormRepository(tx),
			orderItems:    NewOrderItemGormRepository(tx),
			carts:         NewCartGormRepository(tx),
			cartItems:     NewCartItemGormRepository(tx),
			payouts:       NewPayoutGormRepository(tx),
			subscriptions: NewSubscriptionGormRepository(tx),
			listings:      NewListingGormRepository(tx),
			stores:        NewStoreGormRepository(tx),
			webhookEvents: NewWebhookEventGormRepository(tx),
		}
		return fn(r)
	})
}
