package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"app/internal/billing"
	"app/internal/domain/model"
	repo "app/internal/repository"
)

// WebhookUsecase は決済プロバイダからのイベントを処理する。
// 配送はat-least-onceで順序保証もないので、ここでの一貫性は
// すべてDB側（unique制約＋1トランザクション）に寄せる。
type WebhookUsecase struct {
	tx    repo.TransactionManager
	subs  *SubscriptionUsecase
	clock Clock
	log   *slog.Logger
}

func NewWebhookUsecase(
	tx repo.TransactionManager,
	subs *SubscriptionUsecase,
	clock Clock,
	log *slog.Logger,
) *WebhookUsecase {
	return &WebhookUsecase{tx: tx, subs: subs, clock: clock, log: log}
}

// HandleEvent は署名検証済みイベントを1トランザクションで処理する。
// 返すエラーはhandlerで5xxになり、プロバイダが同じイベントを再配送する。
// 再配送はイベント記録のunique制約が吸収する。
func (u *WebhookUsecase) HandleEvent(ctx context.Context, ev billing.Event) error {
	log := u.log.With("event_id", ev.ID, "event_type", ev.Type)

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		row, created, err := r.WebhookEvents().InsertIfNew(ctx, model.WebhookEvent{
			Provider:  "stripe",
			EventID:   ev.ID,
			EventType: ev.Type,
			Payload:   string(ev.Data),
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !created {
			// 二重配送。処理済みとして受理する。
			log.InfoContext(ctx, "duplicate webhook delivery ignored")
			return nil
		}

		if err := u.dispatch(ctx, r, log, row.ID, ev); err != nil {
			return err
		}

		if err := r.WebhookEvents().MarkProcessed(ctx, row.ID, u.clock.Now()); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

func (u *WebhookUsecase) dispatch(ctx context.Context, r repo.TxRepos, log *slog.Logger, eventRowID int64, ev billing.Event) error {
	switch ev.Type {
	case billing.EventPaymentSucceeded:
		pi, err := billing.ParsePaymentIntent(ev.Data)
		if err != nil {
			return u.deadLetter(ctx, r, log, eventRowID, "malformed payment intent payload: "+err.Error())
		}
		return u.handlePaymentSucceeded(ctx, r, log, eventRowID, pi)

	case billing.EventPaymentFailed:
		return u.updateOrderStatus(ctx, r, log, ev, model.OrderStatusFailed)

	case billing.EventPaymentProcessing:
		return u.updateOrderStatus(ctx, r, log, ev, model.OrderStatusProcessing)

	case billing.EventCheckoutSessionCompleted:
		sess, err := billing.ParseCheckoutSession(ev.Data)
		if err != nil {
			return u.deadLetter(ctx, r, log, eventRowID, "malformed checkout session payload: "+err.Error())
		}
		return u.handleCheckoutCompleted(ctx, r, log, eventRowID, sess)

	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		sub, err := billing.ParseSubscription(ev.Data)
		if err != nil {
			return u.deadLetter(ctx, r, log, eventRowID, "malformed subscription payload: "+err.Error())
		}
		return u.applySubscription(ctx, r, log, eventRowID, sub, MapProviderStatus(sub.Status))

	case billing.EventSubscriptionDeleted:
		sub, err := billing.ParseSubscription(ev.Data)
		if err != nil {
			return u.deadLetter(ctx, r, log, eventRowID, "malformed subscription payload: "+err.Error())
		}
		return u.applySubscription(ctx, r, log, eventRowID, sub, model.SubscriptionStatusCanceled)

	case billing.EventInvoicePaymentFailed:
		inv, err := billing.ParseInvoice(ev.Data)
		if err != nil {
			return u.deadLetter(ctx, r, log, eventRowID, "malformed invoice payload: "+err.Error())
		}
		return u.handleInvoiceFailed(ctx, r, log, inv)

	default:
		// 知らない種別は受理して無視する
		log.InfoContext(ctx, "unhandled webhook event type ignored")
		return nil
	}
}

// Order Recorder + Payout Ledger + Cart Closer。全部同じTxの中。
func (u *WebhookUsecase) handlePaymentSucceeded(ctx context.Context, r repo.TxRepos, log *slog.Logger, eventRowID int64, pi billing.PaymentIntentPayload) error {
	log = log.With("payment_intent_id", pi.ID)

	// ストア解決。できない場合も決済を失わない：イベント行に
	// エラーを刻んで手動照合に回す（無限リトライさせない）。
	storeID, ok := parseMetadataID(pi.Metadata, billing.MetadataStoreID)
	if !ok {
		return u.deadLetter(ctx, r, log, eventRowID, "payment intent missing store_id metadata")
	}
	if _, err := r.Stores().FindByID(ctx, storeID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return u.deadLetter(ctx, r, log, eventRowID, "store not found: "+strconv.FormatInt(storeID, 10))
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// カートは決済IDで引く。まだ紐付いていなければmetadataのcart_idで
	// 引き直す（checkout.session.completedより先に届くことがある）。
	cart, cartFound, err := u.resolveCart(ctx, r, pi)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	orderNumber, err := r.Orders().NextOrderNumber(ctx, storeID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	order := model.Order{
		StoreID:         storeID,
		OrderNumber:     orderNumber,
		Status:          model.OrderStatusPaid,
		TotalAmount:     pi.Amount,
		PaymentIntentID: pi.ID,
	}
	if cartFound {
		order.UserID = cart.UserID
	}

	order, orderCreated, err := r.Orders().CreateIgnoreDuplicate(ctx, order)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !orderCreated {
		// 同じ決済の別イベント（または再配送）。注文は既にある。
		log.InfoContext(ctx, "order already recorded for payment", "order_id", order.ID)
	}

	if orderCreated && cartFound {
		items, err := u.snapshotCartItems(ctx, r, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(items) == 0 {
			log.WarnContext(ctx, "paid cart has no items", "cart_id", cart.ID)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}
	if orderCreated && !cartFound {
		// サーバ起点のテスト決済などカートが無いのは正常系。
		// 注文は明細なしで残す。
		log.WarnContext(ctx, "no cart resolved for payment, order recorded without items")
	}

	// 支払い台帳へ追記。注文1件につき1行、unique制約で二重追記を防ぐ。
	fees := CalculateFees(pi.Amount)
	payoutCreated, err := r.Payouts().CreateIgnoreDuplicate(ctx, model.Payout{
		StoreID:      storeID,
		OrderID:      order.ID,
		Amount:       fees.SellerNet,
		PlatformFee:  fees.PlatformFee,
		ProcessorFee: fees.ProcessorFee,
		Status:       model.PayoutStatusPending,
	})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if payoutCreated {
		log.InfoContext(ctx, "pending payout recorded",
			"order_id", order.ID, "seller_net", fees.SellerNet,
			"platform_fee", fees.PlatformFee, "processor_fee", fees.ProcessorFee)
	}

	// カートを閉じて明細をクリア
	if cartFound && cart.Status == model.CartStatusActive {
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return nil
}

func (u *WebhookUsecase) resolveCart(ctx context.Context, r repo.TxRepos, pi billing.PaymentIntentPayload) (model.Cart, bool, error) {
	cart, err := r.Carts().FindByPaymentIntentID(ctx, pi.ID)
	if err == nil {
		return cart, true, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, false, err
	}

	cartID, ok := parseMetadataID(pi.Metadata, billing.MetadataCartID)
	if !ok {
		return model.Cart{}, false, nil
	}

	cart, err = r.Carts().FindByID(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, false, nil
	}
	if err != nil {
		return model.Cart{}, false, err
	}

	if cart.Status == model.CartStatusActive && cart.PaymentIntentID == "" {
		if err := r.Carts().AttachPaymentIntent(ctx, cart.ID, pi.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, false, err
		}
		cart.PaymentIntentID = pi.ID
	}
	return cart, true, nil
}

func (u *WebhookUsecase) snapshotCartItems(ctx context.Context, r repo.TxRepos, cartID int64) ([]model.OrderItem, error) {
	cartItems, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		name := ""
		listing, err := r.Listings().FindByID(ctx, ci.ListingID)
		if err == nil {
			name = listing.Name
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}

		items = append(items, model.OrderItem{
			ListingID:           ci.ListingID,
			ListingNameSnapshot: name,
			UnitPriceSnapshot:   ci.UnitPriceSnapshot,
			Quantity:            ci.Quantity,
		})
	}
	return items, nil
}

func (u *WebhookUsecase) updateOrderStatus(ctx context.Context, r repo.TxRepos, log *slog.Logger, ev billing.Event, status model.OrderStatus) error {
	pi, err := billing.ParsePaymentIntent(ev.Data)
	if err != nil {
		log.WarnContext(ctx, "malformed payment intent payload", "error", err.Error())
		return nil
	}

	err = r.Orders().UpdateStatusByPaymentIntentID(ctx, pi.ID, status)
	if errors.Is(err, repo.ErrNotFound) {
		// 注文がまだ無い決済の失敗/処理中通知。記録だけして受理。
		log.InfoContext(ctx, "payment status event without order",
			"payment_intent_id", pi.ID, "status", string(status))
		return nil
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *WebhookUsecase) handleCheckoutCompleted(ctx context.Context, r repo.TxRepos, log *slog.Logger, eventRowID int64, sess billing.CheckoutSessionPayload) error {
	switch sess.Mode {
	case "payment":
		// payment_intent.succeededより先でも後でも整合するよう、
		// カートに決済IDを紐付けるだけ。
		cartID, ok := parseMetadataID(sess.Metadata, billing.MetadataCartID)
		if !ok || sess.PaymentIntentID == "" {
			log.InfoContext(ctx, "checkout session without cart metadata ignored")
			return nil
		}
		err := r.Carts().AttachPaymentIntent(ctx, cartID, sess.PaymentIntentID)
		if errors.Is(err, repo.ErrNotFound) {
			// 既にCHECKED_OUT（先にpayment_intent.succeededが来た）
			log.InfoContext(ctx, "cart already closed or missing", "cart_id", cartID)
			return nil
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil

	case "subscription":
		storeID, ok := parseMetadataID(sess.Metadata, billing.MetadataStoreID)
		if !ok {
			return u.deadLetter(ctx, r, log, eventRowID, "subscription checkout missing store_id metadata")
		}
		// customer.subscription.createdが本命。ここでは申込中として記録。
		return u.subs.ApplyTx(ctx, r, SubscriptionUpdate{
			StoreID:                storeID,
			ProviderSubscriptionID: sess.SubscriptionID,
			Status:                 model.SubscriptionStatusPending,
		})

	default:
		log.InfoContext(ctx, "checkout session mode ignored", "mode", sess.Mode)
		return nil
	}
}

func (u *WebhookUsecase) applySubscription(ctx context.Context, r repo.TxRepos, log *slog.Logger, eventRowID int64, sub billing.SubscriptionPayload, status model.SubscriptionStatus) error {
	storeID, ok := parseMetadataID(sub.Metadata, billing.MetadataStoreID)
	if !ok {
		// metadataに無ければ既知のサブスクIDから引く
		existing, found, err := r.Subscriptions().FindByProviderSubscriptionID(ctx, sub.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !found {
			return u.deadLetter(ctx, r, log, eventRowID, "subscription event with unknown store: "+sub.ID)
		}
		storeID = existing.StoreID
	}

	update := SubscriptionUpdate{
		StoreID:                storeID,
		ProviderSubscriptionID: sub.ID,
		Status:                 status,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodStart > 0 {
		t := time.Unix(sub.CurrentPeriodStart, 0)
		update.CurrentPeriodStart = &t
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0)
		update.CurrentPeriodEnd = &t
	}

	return u.subs.ApplyTx(ctx, r, update)
}

func (u *WebhookUsecase) handleInvoiceFailed(ctx context.Context, r repo.TxRepos, log *slog.Logger, inv billing.InvoicePayload) error {
	if inv.SubscriptionID == "" {
		log.InfoContext(ctx, "invoice event without subscription ignored")
		return nil
	}

	existing, found, err := r.Subscriptions().FindByProviderSubscriptionID(ctx, inv.SubscriptionID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !found {
		log.InfoContext(ctx, "invoice for unknown subscription ignored",
			"provider_subscription_id", inv.SubscriptionID)
		return nil
	}

	return u.subs.ApplyTx(ctx, r, SubscriptionUpdate{
		StoreID:                existing.StoreID,
		ProviderSubscriptionID: existing.ProviderSubscriptionID,
		Status:                 model.SubscriptionStatusPastDue,
		CurrentPeriodStart:     existing.CurrentPeriodStart,
		CurrentPeriodEnd:       existing.CurrentPeriodEnd,
		CancelAtPeriodEnd:      existing.CancelAtPeriodEnd,
	})
}

// deadLetter はリトライしても直らない失敗。イベント行にエラーを刻んで
// 200で受理する（プロバイダに無限リトライさせない）。管理側が拾って
// 手動照合する。
func (u *WebhookUsecase) deadLetter(ctx context.Context, r repo.TxRepos, log *slog.Logger, eventRowID int64, message string) error {
	log.WarnContext(ctx, "webhook event dead-lettered", "reason", message)
	if err := r.WebhookEvents().MarkFailed(ctx, eventRowID, message); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// ListFailedEvents は手動照合待ちのdead letter一覧。
func (u *WebhookUsecase) ListFailedEvents(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var events []model.WebhookEvent
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		events, err = r.WebhookEvents().ListFailed(ctx, limit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func parseMetadataID(metadata map[string]string, key string) (int64, bool) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
