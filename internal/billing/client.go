package billing

import (
	"context"
	"encoding/json"
	"time"
)

// 課金プロバイダから受け取ったイベント。署名検証済み。
type Event struct {
	ID        string
	Type      string
	Data      json.RawMessage
	CreatedAt time.Time
}

// 扱うイベント種別。これ以外は受理して無視する。
const (
	EventPaymentSucceeded         = "payment_intent.succeeded"
	EventPaymentFailed            = "payment_intent.payment_failed"
	EventPaymentProcessing        = "payment_intent.processing"
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionInput struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	// payment_intentに載せるメタデータ（cart_id / store_id）
	Metadata map[string]string
}

type SubscriptionSessionInput struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	// subscriptionに載せるメタデータ（store_id）
	Metadata map[string]string
}

type CheckoutSession struct {
	ID string
	// payment modeのセッションでは作成時点で空のことがある。
	// その場合は checkout.session.completed で補完する。
	PaymentIntentID string
	URL             string
}

type ProviderSubscription struct {
	ID                 string
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// Client は課金プロバイダへの出入口。グローバル変数ではなくDIで渡す。
type Client interface {
	// 署名を検証してEventに詰め替える。検証不能ならエラー。
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)

	CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (CheckoutSession, error)
	CreateSubscriptionSession(ctx context.Context, in SubscriptionSessionInput) (CheckoutSession, error)
	GetSubscription(ctx context.Context, providerSubID string) (ProviderSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, providerSubID string) error
}
