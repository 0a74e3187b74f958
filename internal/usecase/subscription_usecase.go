package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// プロバイダのwebhookから届くサブスクの新しい状態
type SubscriptionUpdate struct {
	StoreID                int64
	ProviderSubscriptionID string
	Status                 model.SubscriptionStatus
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
}

// SubscriptionUsecase はサブスクの状態遷移と
// リスティング公開状態のカスケードを担当する。
type SubscriptionUsecase struct {
	tx  repo.TransactionManager
	log *slog.Logger
}

func NewSubscriptionUsecase(tx repo.TransactionManager, log *slog.Logger) *SubscriptionUsecase {
	return &SubscriptionUsecase{tx: tx, log: log}
}

// MapProviderStatus はプロバイダのステータス語彙を内部の状態に写す。
func MapProviderStatus(s string) model.SubscriptionStatus {
	switch s {
	case "active", "trialing":
		return model.SubscriptionStatusActive
	case "past_due", "unpaid":
		return model.SubscriptionStatusPastDue
	case "canceled", "incomplete_expired":
		return model.SubscriptionStatusCanceled
	default:
		// incomplete等。checkout開始済みで未確定。
		return model.SubscriptionStatusPending
	}
}

// Apply は単独トランザクションで状態を適用する（手動同期など用）。
func (u *SubscriptionUsecase) Apply(ctx context.Context, in SubscriptionUpdate) error {
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return u.ApplyTx(ctx, r, in)
	})
}

// ApplyTx は呼び出し側のトランザクション内で状態を適用する。
// webhook処理はイベント記録と同じTxでこちらを使う。
// 同じ状態を再適用しても結果は変わらない（冪等）。
func (u *SubscriptionUsecase) ApplyTx(ctx context.Context, r repo.TxRepos, in SubscriptionUpdate) error {
	if in.StoreID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid store_id")
	}

	current, found, err := r.Subscriptions().FindByStoreID(ctx, in.StoreID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	prev := model.SubscriptionStatusPending
	if found {
		prev = current.Status
	}

	sub := model.Subscription{
		StoreID:                in.StoreID,
		ProviderSubscriptionID: in.ProviderSubscriptionID,
		Status:                 in.Status,
		CurrentPeriodStart:     in.CurrentPeriodStart,
		CurrentPeriodEnd:       in.CurrentPeriodEnd,
		CancelAtPeriodEnd:      in.CancelAtPeriodEnd,
	}
	if found {
		sub.ID = current.ID
		sub.CreatedAt = current.CreatedAt
	}
	if err := r.Subscriptions().Upsert(ctx, sub); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 公開状態のカスケード。update文自体が対象行を絞るので
	// 二重適用しても0行更新になるだけ。
	switch in.Status {
	case model.SubscriptionStatusActive:
		// カスケードで落としたものだけ復活。出品者の下書きは触らない。
		n, err := r.Listings().ReactivateByReason(ctx, in.StoreID, model.ReasonSubscription)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		u.log.InfoContext(ctx, "subscription activated",
			"store_id", in.StoreID, "prev_status", string(prev), "reactivated_listings", n)

	case model.SubscriptionStatusPastDue, model.SubscriptionStatusCanceled:
		n, err := r.Listings().DeactivateActiveByStore(ctx, in.StoreID, model.ReasonSubscription)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		u.log.InfoContext(ctx, "subscription lapsed",
			"store_id", in.StoreID, "status", string(in.Status),
			"prev_status", string(prev), "deactivated_listings", n)

	default:
		// PENDINGは公開状態に触らない
	}

	return nil
}

type SubscriptionOutput struct {
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
}

// GetForStore は出品者ダッシュボード向けの現状態。
func (u *SubscriptionUsecase) GetForStore(ctx context.Context, storeID int64) (SubscriptionOutput, error) {
	var out SubscriptionOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		sub, found, err := r.Subscriptions().FindByStoreID(ctx, storeID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !found {
			return NewHTTPError(http.StatusNotFound, "no subscription")
		}

		out = SubscriptionOutput{
			Status:             string(sub.Status),
			CurrentPeriodStart: sub.CurrentPeriodStart,
			CurrentPeriodEnd:   sub.CurrentPeriodEnd,
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		}
		return nil
	})
	if err != nil {
		return SubscriptionOutput{}, err
	}
	return out, nil
}
