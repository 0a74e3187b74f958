package billing

import (
	"encoding/json"
	"fmt"
)

// webhookのData部を読むための明示的なスキーマ。
// map[string]interface{}で受けると書き手と読み手で形がずれても
// 気づけないので、使うフィールドだけ型で宣言する。

const (
	MetadataStoreID = "store_id"
	MetadataCartID  = "cart_id"
)

type PaymentIntentPayload struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

type CheckoutSessionPayload struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	PaymentIntentID string            `json:"payment_intent"`
	SubscriptionID  string            `json:"subscription"`
	AmountTotal     int64             `json:"amount_total"`
	Metadata        map[string]string `json:"metadata"`
}

type SubscriptionPayload struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
}

type InvoicePayload struct {
	ID             string            `json:"id"`
	SubscriptionID string            `json:"subscription"`
	Metadata       map[string]string `json:"metadata"`
}

func ParsePaymentIntent(data json.RawMessage) (PaymentIntentPayload, error) {
	var p PaymentIntentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return PaymentIntentPayload{}, fmt.Errorf("parse payment intent: %w", err)
	}
	if p.ID == "" {
		return PaymentIntentPayload{}, fmt.Errorf("payment intent payload missing id")
	}
	return p, nil
}

func ParseCheckoutSession(data json.RawMessage) (CheckoutSessionPayload, error) {
	var p CheckoutSessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return CheckoutSessionPayload{}, fmt.Errorf("parse checkout session: %w", err)
	}
	if p.ID == "" {
		return CheckoutSessionPayload{}, fmt.Errorf("checkout session payload missing id")
	}
	return p, nil
}

func ParseSubscription(data json.RawMessage) (SubscriptionPayload, error) {
	var p SubscriptionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return SubscriptionPayload{}, fmt.Errorf("parse subscription: %w", err)
	}
	if p.ID == "" {
		return SubscriptionPayload{}, fmt.Errorf("subscription payload missing id")
	}
	return p, nil
}

func ParseInvoice(data json.RawMessage) (InvoicePayload, error) {
	var p InvoicePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return InvoicePayload{}, fmt.Errorf("parse invoice: %w", err)
	}
	return p, nil
}
