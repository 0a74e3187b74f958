package billing

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeClient はClientのStripe実装。
type StripeClient struct {
	api           *client.API
	webhookSecret string
}

func NewStripeClient(secretKey string, webhookSecret string) *StripeClient {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &StripeClient{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

func (c *StripeClient) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("verify webhook signature: %w", err)
	}

	return Event{
		ID:        ev.ID,
		Type:      string(ev.Type),
		Data:      ev.Data.Raw,
		CreatedAt: time.Unix(ev.Created, 0),
	}, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, li := range in.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		// webhook側でカート/ストアを引けるようpayment_intentに刻む
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: in.Metadata,
		},
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	out := CheckoutSession{ID: s.ID, URL: s.URL}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}

func (c *StripeClient) CreateSubscriptionSession(ctx context.Context, in SubscriptionSessionInput) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(in.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: in.Metadata,
		},
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create subscription session: %w", err)
	}

	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, providerSubID string) (ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := c.api.Subscriptions.Get(providerSubID, params)
	if err != nil {
		return ProviderSubscription{}, fmt.Errorf("get subscription: %w", err)
	}

	out := ProviderSubscription{
		ID:                s.ID,
		Status:            string(s.Status),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		out.CurrentPeriodStart = time.Unix(s.Items.Data[0].CurrentPeriodStart, 0)
		out.CurrentPeriodEnd = time.Unix(s.Items.Data[0].CurrentPeriodEnd, 0)
	}
	return out, nil
}

func (c *StripeClient) CancelAtPeriodEnd(ctx context.Context, providerSubID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := c.api.Subscriptions.Update(providerSubID, params); err != nil {
		return fmt.Errorf("cancel subscription at period end: %w", err)
	}
	return nil
}
