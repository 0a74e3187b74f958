package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"app/internal/billing"
	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newWebhookUsecaseForTest(repos *txReposStub) *WebhookUsecase {
	tx := &txManagerStub{repos: repos}
	subs := NewSubscriptionUsecase(tx, discardLogger())
	return NewWebhookUsecase(tx, subs, &fixedClock{t: time.Now()}, discardLogger())
}

func paymentEvent(id string, amount int64, metadata map[string]string) billing.Event {
	payload, _ := json.Marshal(billing.PaymentIntentPayload{
		ID:       id,
		Amount:   amount,
		Status:   "succeeded",
		Metadata: metadata,
	})
	return billing.Event{ID: "evt_" + id, Type: billing.EventPaymentSucceeded, Data: payload}
}

func expectNewEventRow(repos *txReposStub, rowID int64) {
	repos.webhookEvents.On("InsertIfNew", mock.Anything, mock.Anything).
		Return(model.WebhookEvent{ID: rowID}, true, nil)
}

// =====================
// 重複排除
// =====================

func TestWebhook_DuplicateDelivery_IsAcceptedWithoutProcessing(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	repos.webhookEvents.On("InsertIfNew", mock.Anything, mock.MatchedBy(func(ev model.WebhookEvent) bool {
		return ev.Provider == "stripe" && ev.EventID == "evt_pi_1"
	})).Return(model.WebhookEvent{ID: 10}, false, nil)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5"}))
	assert.NoError(t, err)

	// 2回目の配送は何も処理しない
	repos.orders.AssertNotCalled(t, "CreateIgnoreDuplicate", mock.Anything, mock.Anything)
	repos.webhookEvents.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_UnhandledEventType_Accepted(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_x", Type: "charge.refunded", Data: json.RawMessage(`{}`),
	})
	assert.NoError(t, err)
}

// =====================
// payment_intent.succeeded
// =====================

func TestWebhook_PaymentSucceeded_RecordsOrderPayoutAndClosesCart(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	userID := int64(2)
	expectNewEventRow(repos, 10)
	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{ID: 5}, nil)
	repos.carts.On("FindByPaymentIntentID", mock.Anything, "pi_1").
		Return(model.Cart{ID: 30, UserID: &userID, Status: model.CartStatusActive, PaymentIntentID: "pi_1"}, nil)
	repos.orders.On("NextOrderNumber", mock.Anything, int64(5)).Return(int64(42), nil)

	repos.orders.On("CreateIgnoreDuplicate", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.StoreID == 5 && o.OrderNumber == 42 && o.PaymentIntentID == "pi_1" &&
			o.Status == model.OrderStatusPaid && o.TotalAmount == 1000
	})).Return(model.Order{ID: 100, StoreID: 5, OrderNumber: 42}, true, nil)

	repos.cartItems.On("ListByCartID", mock.Anything, int64(30)).Return([]model.CartItem{
		{ID: 1, CartID: 30, ListingID: 7, Quantity: 2, UnitPriceSnapshot: 500},
	}, nil)
	repos.listings.On("FindByID", mock.Anything, int64(7)).Return(model.Listing{ID: 7, Name: "Tokyo walk"}, nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(100), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].ListingNameSnapshot == "Tokyo walk" && items[0].UnitPriceSnapshot == 500
	})).Return(nil)

	// 1000セントの内訳: processor 59 / platform 100 / seller 841
	repos.payouts.On("CreateIgnoreDuplicate", mock.Anything, mock.MatchedBy(func(p model.Payout) bool {
		return p.StoreID == 5 && p.OrderID == 100 && p.Amount == 841 &&
			p.PlatformFee == 100 && p.ProcessorFee == 59 && p.Status == model.PayoutStatusPending
	})).Return(true, nil)

	repos.carts.On("UpdateStatus", mock.Anything, int64(30), model.CartStatusCheckedOut).Return(nil)
	repos.carts.On("Clear", mock.Anything, int64(30)).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5", "cart_id": "30"}))
	assert.NoError(t, err)

	repos.orders.AssertExpectations(t)
	repos.payouts.AssertExpectations(t)
	repos.carts.AssertExpectations(t)
}

func TestWebhook_PaymentSucceeded_OrderAlreadyRecorded(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{ID: 5}, nil)
	repos.carts.On("FindByPaymentIntentID", mock.Anything, "pi_1").
		Return(model.Cart{}, repo.ErrNotFound)
	repos.orders.On("NextOrderNumber", mock.Anything, int64(5)).Return(int64(43), nil)

	// unique制約に弾かれて既存行が返る
	repos.orders.On("CreateIgnoreDuplicate", mock.Anything, mock.Anything).
		Return(model.Order{ID: 100, StoreID: 5, OrderNumber: 42}, false, nil)

	// 支払いも既存（order_idのunique制約）
	repos.payouts.On("CreateIgnoreDuplicate", mock.Anything, mock.Anything).Return(false, nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5"}))
	assert.NoError(t, err)

	// 既存注文に明細を追記しない
	repos.orderItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
}

// カート不達の決済でもcart_idメタデータから引き直して紐付ける
func TestWebhook_PaymentSucceeded_ResolvesCartFromMetadata(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	userID := int64(2)
	expectNewEventRow(repos, 10)
	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{ID: 5}, nil)
	repos.carts.On("FindByPaymentIntentID", mock.Anything, "pi_1").Return(model.Cart{}, repo.ErrNotFound)
	repos.carts.On("FindByID", mock.Anything, int64(30)).
		Return(model.Cart{ID: 30, UserID: &userID, Status: model.CartStatusActive}, nil)
	repos.carts.On("AttachPaymentIntent", mock.Anything, int64(30), "pi_1").Return(nil)
	repos.orders.On("NextOrderNumber", mock.Anything, int64(5)).Return(int64(1), nil)
	repos.orders.On("CreateIgnoreDuplicate", mock.Anything, mock.Anything).
		Return(model.Order{ID: 100}, true, nil)
	repos.cartItems.On("ListByCartID", mock.Anything, int64(30)).Return([]model.CartItem{}, nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(100), mock.Anything).Return(nil)
	repos.payouts.On("CreateIgnoreDuplicate", mock.Anything, mock.Anything).Return(true, nil)
	repos.carts.On("UpdateStatus", mock.Anything, int64(30), model.CartStatusCheckedOut).Return(nil)
	repos.carts.On("Clear", mock.Anything, int64(30)).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5", "cart_id": "30"}))
	assert.NoError(t, err)

	repos.carts.AssertExpectations(t)
}

// =====================
// dead letter
// =====================

func TestWebhook_MissingStoreMetadata_DeadLettered(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.webhookEvents.On("MarkFailed", mock.Anything, int64(10), mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	// 200で受理するのでエラーは返らない。プロバイダに再送させない。
	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, nil))
	assert.NoError(t, err)

	repos.webhookEvents.AssertExpectations(t)
	repos.orders.AssertNotCalled(t, "CreateIgnoreDuplicate", mock.Anything, mock.Anything)
}

func TestWebhook_UnknownStore_DeadLettered(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{}, repo.ErrNotFound)
	repos.webhookEvents.On("MarkFailed", mock.Anything, int64(10), mock.Anything).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5"}))
	assert.NoError(t, err)

	repos.webhookEvents.AssertExpectations(t)
}

// 一時的なDB障害は5xxで返してプロバイダに再送させる
func TestWebhook_TransientDBError_Returns5xx(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{}, assert.AnError)

	err := uc.HandleEvent(context.Background(), paymentEvent("pi_1", 1000, map[string]string{"store_id": "5"}))
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 500, he.Status)

	repos.webhookEvents.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

// =====================
// payment_intent.payment_failed / processing
// =====================

func TestWebhook_PaymentFailed_UpdatesOrderStatus(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.orders.On("UpdateStatusByPaymentIntentID", mock.Anything, "pi_1", model.OrderStatusFailed).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.PaymentIntentPayload{ID: "pi_1"})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_f", Type: billing.EventPaymentFailed, Data: payload,
	})
	assert.NoError(t, err)

	repos.orders.AssertExpectations(t)
}

// 対応する注文がない失敗通知はログだけ残して受理する
func TestWebhook_PaymentFailed_WithoutOrder_IsNoop(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.orders.On("UpdateStatusByPaymentIntentID", mock.Anything, "pi_missing", model.OrderStatusFailed).
		Return(repo.ErrNotFound)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.PaymentIntentPayload{ID: "pi_missing"})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_f", Type: billing.EventPaymentFailed, Data: payload,
	})
	assert.NoError(t, err)
}

// =====================
// サブスク系イベント
// =====================

func TestWebhook_SubscriptionUpdated_CascadesListingState(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.subscriptions.On("FindByStoreID", mock.Anything, int64(5)).
		Return(model.Subscription{ID: 3, StoreID: 5, Status: model.SubscriptionStatusActive}, true, nil)
	repos.subscriptions.On("Upsert", mock.Anything, mock.MatchedBy(func(s model.Subscription) bool {
		return s.StoreID == 5 && s.Status == model.SubscriptionStatusPastDue &&
			s.CurrentPeriodStart != nil && s.CurrentPeriodEnd != nil
	})).Return(nil)
	repos.listings.On("DeactivateActiveByStore", mock.Anything, int64(5), model.ReasonSubscription).
		Return(int64(2), nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.SubscriptionPayload{
		ID:                 "sub_1",
		Status:             "past_due",
		CurrentPeriodStart: 1756684800,
		CurrentPeriodEnd:   1759276800,
		Metadata:           map[string]string{"store_id": "5"},
	})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_s", Type: billing.EventSubscriptionUpdated, Data: payload,
	})
	assert.NoError(t, err)

	repos.listings.AssertExpectations(t)
}

// metadataが無くても既知のサブスクIDからストアを引ける
func TestWebhook_SubscriptionDeleted_ResolvesStoreBySubscriptionID(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.subscriptions.On("FindByProviderSubscriptionID", mock.Anything, "sub_1").
		Return(model.Subscription{ID: 3, StoreID: 5, Status: model.SubscriptionStatusActive}, true, nil)
	repos.subscriptions.On("FindByStoreID", mock.Anything, int64(5)).
		Return(model.Subscription{ID: 3, StoreID: 5, Status: model.SubscriptionStatusActive}, true, nil)
	repos.subscriptions.On("Upsert", mock.Anything, mock.MatchedBy(func(s model.Subscription) bool {
		return s.Status == model.SubscriptionStatusCanceled
	})).Return(nil)
	repos.listings.On("DeactivateActiveByStore", mock.Anything, int64(5), model.ReasonSubscription).
		Return(int64(1), nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.SubscriptionPayload{ID: "sub_1", Status: "canceled"})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_d", Type: billing.EventSubscriptionDeleted, Data: payload,
	})
	assert.NoError(t, err)
}

func TestWebhook_SubscriptionWithUnknownStore_DeadLettered(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.subscriptions.On("FindByProviderSubscriptionID", mock.Anything, "sub_x").
		Return(model.Subscription{}, false, nil)
	repos.webhookEvents.On("MarkFailed", mock.Anything, int64(10), mock.Anything).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.SubscriptionPayload{ID: "sub_x", Status: "active"})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_u", Type: billing.EventSubscriptionCreated, Data: payload,
	})
	assert.NoError(t, err)

	repos.webhookEvents.AssertExpectations(t)
}

func TestWebhook_InvoicePaymentFailed_MarksPastDue(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.subscriptions.On("FindByProviderSubscriptionID", mock.Anything, "sub_1").
		Return(model.Subscription{ID: 3, StoreID: 5, Status: model.SubscriptionStatusActive, ProviderSubscriptionID: "sub_1"}, true, nil)
	repos.subscriptions.On("FindByStoreID", mock.Anything, int64(5)).
		Return(model.Subscription{ID: 3, StoreID: 5, Status: model.SubscriptionStatusActive}, true, nil)
	repos.subscriptions.On("Upsert", mock.Anything, mock.MatchedBy(func(s model.Subscription) bool {
		return s.Status == model.SubscriptionStatusPastDue
	})).Return(nil)
	repos.listings.On("DeactivateActiveByStore", mock.Anything, int64(5), model.ReasonSubscription).
		Return(int64(2), nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.InvoicePayload{ID: "in_1", SubscriptionID: "sub_1"})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_i", Type: billing.EventInvoicePaymentFailed, Data: payload,
	})
	assert.NoError(t, err)

	repos.listings.AssertExpectations(t)
}

// =====================
// checkout.session.completed
// =====================

func TestWebhook_CheckoutCompleted_PaymentMode_AttachesIntent(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.carts.On("AttachPaymentIntent", mock.Anything, int64(30), "pi_1").Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.CheckoutSessionPayload{
		ID: "cs_1", Mode: "payment", PaymentIntentID: "pi_1",
		Metadata: map[string]string{"cart_id": "30"},
	})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_c", Type: billing.EventCheckoutSessionCompleted, Data: payload,
	})
	assert.NoError(t, err)

	repos.carts.AssertExpectations(t)
}

// 先にpayment_intent.succeededが処理済みでカートが閉じていても受理する
func TestWebhook_CheckoutCompleted_CartAlreadyClosed_IsNoop(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.carts.On("AttachPaymentIntent", mock.Anything, int64(30), "pi_1").Return(repo.ErrNotFound)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.CheckoutSessionPayload{
		ID: "cs_1", Mode: "payment", PaymentIntentID: "pi_1",
		Metadata: map[string]string{"cart_id": "30"},
	})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_c", Type: billing.EventCheckoutSessionCompleted, Data: payload,
	})
	assert.NoError(t, err)
}

func TestWebhook_CheckoutCompleted_SubscriptionMode_RecordsPending(t *testing.T) {
	repos := newTxReposStub()
	uc := newWebhookUsecaseForTest(repos)

	expectNewEventRow(repos, 10)
	repos.subscriptions.On("FindByStoreID", mock.Anything, int64(5)).
		Return(model.Subscription{}, false, nil)
	repos.subscriptions.On("Upsert", mock.Anything, mock.MatchedBy(func(s model.Subscription) bool {
		return s.StoreID == 5 && s.Status == model.SubscriptionStatusPending && s.ProviderSubscriptionID == "sub_1"
	})).Return(nil)
	repos.webhookEvents.On("MarkProcessed", mock.Anything, int64(10), mock.Anything).Return(nil)

	payload, _ := json.Marshal(billing.CheckoutSessionPayload{
		ID: "cs_1", Mode: "subscription", SubscriptionID: "sub_1",
		Metadata: map[string]string{"store_id": "5"},
	})
	err := uc.HandleEvent(context.Background(), billing.Event{
		ID: "evt_c", Type: billing.EventCheckoutSessionCompleted, Data: payload,
	})
	assert.NoError(t, err)

	// PENDINGは公開状態に触らない
	repos.listings.AssertNotCalled(t, "ReactivateByReason", mock.Anything, mock.Anything, mock.Anything)
	repos.listings.AssertNotCalled(t, "DeactivateActiveByStore", mock.Anything, mock.Anything, mock.Anything)
}
