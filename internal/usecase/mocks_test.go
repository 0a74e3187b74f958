package usecase

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, bool, error) {
	args := m.Called(ctx, paymentIntentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) CreateIgnoreDuplicate(ctx context.Context, order model.Order) (model.Order, bool, error) {
	args := m.Called(ctx, order)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) NextOrderNumber(ctx context.Context, storeID int64) (int64, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID string, status model.OrderStatus) error {
	args := m.Called(ctx, paymentIntentID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) ListByStoreID(ctx context.Context, storeID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, storeID, page, limit)
	items, _ := args.Get(0).([]model.Order)
	return items, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Cart, error) {
	args := m.Called(ctx, paymentIntentID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) AttachPaymentIntent(ctx context.Context, cartID int64, paymentIntentID string) error {
	args := m.Called(ctx, cartID, paymentIntentID)
	return args.Error(0)
}

func (m *CartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	args := m.Called(ctx, cartID, status)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *CartRepoMock) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartAndListing(ctx context.Context, cartID int64, listingID int64, addQty int64, unitPriceSnapshot int64) error {
	args := m.Called(ctx, cartID, listingID, addQty, unitPriceSnapshot)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	ci, _ := args.Get(0).(model.CartItem)
	return ci, args.Error(1)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type PayoutRepoMock struct{ mock.Mock }

func (m *PayoutRepoMock) CreateIgnoreDuplicate(ctx context.Context, payout model.Payout) (bool, error) {
	args := m.Called(ctx, payout)
	return args.Bool(0), args.Error(1)
}

func (m *PayoutRepoMock) SumByStatus(ctx context.Context, storeID int64, status model.PayoutStatus) (int64, error) {
	args := m.Called(ctx, storeID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PayoutRepoMock) ListByStoreID(ctx context.Context, storeID int64) ([]model.Payout, error) {
	args := m.Called(ctx, storeID)
	items, _ := args.Get(0).([]model.Payout)
	return items, args.Error(1)
}

func (m *PayoutRepoMock) FindByID(ctx context.Context, payoutID int64) (model.Payout, error) {
	args := m.Called(ctx, payoutID)
	p, _ := args.Get(0).(model.Payout)
	return p, args.Error(1)
}

func (m *PayoutRepoMock) MarkAllPendingPaid(ctx context.Context, storeID int64, batchID string, paidAt time.Time) (int64, error) {
	args := m.Called(ctx, storeID, batchID, paidAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PayoutRepoMock) LatestPaidBatch(ctx context.Context, storeID int64) (string, error) {
	args := m.Called(ctx, storeID)
	return args.String(0), args.Error(1)
}

func (m *PayoutRepoMock) RevertBatch(ctx context.Context, storeID int64, batchID string) (int64, error) {
	args := m.Called(ctx, storeID, batchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *PayoutRepoMock) UpdateStatus(ctx context.Context, payoutID int64, status model.PayoutStatus) error {
	args := m.Called(ctx, payoutID, status)
	return args.Error(0)
}

type SubscriptionRepoMock struct{ mock.Mock }

func (m *SubscriptionRepoMock) FindByStoreID(ctx context.Context, storeID int64) (model.Subscription, bool, error) {
	args := m.Called(ctx, storeID)
	s, _ := args.Get(0).(model.Subscription)
	return s, args.Bool(1), args.Error(2)
}

func (m *SubscriptionRepoMock) FindByProviderSubscriptionID(ctx context.Context, providerSubID string) (model.Subscription, bool, error) {
	args := m.Called(ctx, providerSubID)
	s, _ := args.Get(0).(model.Subscription)
	return s, args.Bool(1), args.Error(2)
}

func (m *SubscriptionRepoMock) Upsert(ctx context.Context, sub model.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type ListingRepoMock struct{ mock.Mock }

func (m *ListingRepoMock) Create(ctx context.Context, listing model.Listing) (int64, error) {
	args := m.Called(ctx, listing)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ListingRepoMock) FindByID(ctx context.Context, listingID int64) (model.Listing, error) {
	args := m.Called(ctx, listingID)
	l, _ := args.Get(0).(model.Listing)
	return l, args.Error(1)
}

func (m *ListingRepoMock) ListByStoreID(ctx context.Context, storeID int64, onlyActive bool) ([]model.Listing, error) {
	args := m.Called(ctx, storeID, onlyActive)
	items, _ := args.Get(0).([]model.Listing)
	return items, args.Error(1)
}

func (m *ListingRepoMock) SetActive(ctx context.Context, listingID int64, active bool, reason model.DeactivatedReason) error {
	args := m.Called(ctx, listingID, active, reason)
	return args.Error(0)
}

func (m *ListingRepoMock) DeactivateActiveByStore(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error) {
	args := m.Called(ctx, storeID, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ListingRepoMock) ReactivateByReason(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error) {
	args := m.Called(ctx, storeID, reason)
	return args.Get(0).(int64), args.Error(1)
}

type StoreRepoMock struct{ mock.Mock }

func (m *StoreRepoMock) Create(ctx context.Context, store model.Store) (int64, error) {
	args := m.Called(ctx, store)
	return args.Get(0).(int64), args.Error(1)
}

func (m *StoreRepoMock) FindByID(ctx context.Context, storeID int64) (model.Store, error) {
	args := m.Called(ctx, storeID)
	s, _ := args.Get(0).(model.Store)
	return s, args.Error(1)
}

func (m *StoreRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Store, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(model.Store)
	return s, args.Error(1)
}

func (m *StoreRepoMock) FindBySlug(ctx context.Context, slug string) (model.Store, error) {
	args := m.Called(ctx, slug)
	s, _ := args.Get(0).(model.Store)
	return s, args.Error(1)
}

type WebhookEventRepoMock struct{ mock.Mock }

func (m *WebhookEventRepoMock) InsertIfNew(ctx context.Context, ev model.WebhookEvent) (model.WebhookEvent, bool, error) {
	args := m.Called(ctx, ev)
	row, _ := args.Get(0).(model.WebhookEvent)
	return row, args.Bool(1), args.Error(2)
}

func (m *WebhookEventRepoMock) MarkProcessed(ctx context.Context, eventRowID int64, at time.Time) error {
	args := m.Called(ctx, eventRowID, at)
	return args.Error(0)
}

func (m *WebhookEventRepoMock) MarkFailed(ctx context.Context, eventRowID int64, message string) error {
	args := m.Called(ctx, eventRowID, message)
	return args.Error(0)
}

func (m *WebhookEventRepoMock) ListFailed(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]model.WebhookEvent)
	return items, args.Error(1)
}

// =====================
// Txまわりのスタブ
// =====================

// テストでは全リポジトリをモックで差し込む。
type txReposStub struct {
	orders        *OrderRepoMock
	orderItems    *OrderItemRepoMock
	carts         *CartRepoMock
	cartItems     *CartItemRepoMock
	payouts       *PayoutRepoMock
	subscriptions *SubscriptionRepoMock
	listings      *ListingRepoMock
	stores        *StoreRepoMock
	webhookEvents *WebhookEventRepoMock
}

func newTxReposStub() *txReposStub {
	return &txReposStub{
		orders:        new(OrderRepoMock),
		orderItems:    new(OrderItemRepoMock),
		carts:         new(CartRepoMock),
		cartItems:     new(CartItemRepoMock),
		payouts:       new(PayoutRepoMock),
		subscriptions: new(SubscriptionRepoMock),
		listings:      new(ListingRepoMock),
		stores:        new(StoreRepoMock),
		webhookEvents: new(WebhookEventRepoMock),
	}
}

func (s *txReposStub) Orders() repo.OrderRepository                { return s.orders }
func (s *txReposStub) OrderItems() repo.OrderItemRepository        { return s.orderItems }
func (s *txReposStub) Carts() repo.CartRepository                  { return s.carts }
func (s *txReposStub) CartItems() repo.CartItemRepository          { return s.cartItems }
func (s *txReposStub) Payouts() repo.PayoutRepository              { return s.payouts }
func (s *txReposStub) Subscriptions() repo.SubscriptionRepository  { return s.subscriptions }
func (s *txReposStub) Listings() repo.ListingRepository            { return s.listings }
func (s *txReposStub) Stores() repo.StoreRepository                { return s.stores }
func (s *txReposStub) WebhookEvents() repo.WebhookEventRepository  { return s.webhookEvents }

// WithinTxはそのままfnを呼ぶだけ。commit/rollbackの挙動は見ない。
type txManagerStub struct{ repos *txReposStub }

func (m *txManagerStub) WithinTx(_ context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m.repos)
}

// =====================
// Clock / IDGenerator
// =====================

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return "batch-" + strconv.Itoa(g.n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
