package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// PayoutUsecase は出品者への支払い台帳を扱う。
type PayoutUsecase struct {
	tx    repo.TransactionManager
	idGen IDGenerator
	clock Clock
	log   *slog.Logger
}

func NewPayoutUsecase(tx repo.TransactionManager, idGen IDGenerator, clock Clock, log *slog.Logger) *PayoutUsecase {
	return &PayoutUsecase{tx: tx, idGen: idGen, clock: clock, log: log}
}

type BalanceOutput struct {
	StoreID        int64     `json:"store_id"`
	PendingAmount  int64     `json:"pending_amount"`
	PaidAmount     int64     `json:"paid_amount"`
	NextPayoutDate time.Time `json:"next_payout_date"`
}

// Balance は保留中・支払済みの合計と次回支払日。
func (u *PayoutUsecase) Balance(ctx context.Context, storeID int64) (BalanceOutput, error) {
	if storeID <= 0 {
		return BalanceOutput{}, NewHTTPError(http.StatusBadRequest, "invalid store_id")
	}

	var out BalanceOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Stores().FindByID(ctx, storeID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "store not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		pending, err := r.Payouts().SumByStatus(ctx, storeID, model.PayoutStatusPending)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		paid, err := r.Payouts().SumByStatus(ctx, storeID, model.PayoutStatusPaid)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = BalanceOutput{
			StoreID:        storeID,
			PendingAmount:  pending,
			PaidAmount:     paid,
			NextPayoutDate: NextPayoutDate(u.clock.Now()),
		}
		return nil
	})
	if err != nil {
		return BalanceOutput{}, err
	}
	return out, nil
}

type MarkPaidOutput struct {
	BatchID string `json:"batch_id"`
	Count   int64  `json:"count"`
}

// MarkPaid はストアのPENDING全件をPAIDへ倒す管理操作。
// 同じバッチIDを刻むのでundoはこの単位でしか戻せない。
func (u *PayoutUsecase) MarkPaid(ctx context.Context, storeID int64) (MarkPaidOutput, error) {
	if storeID <= 0 {
		return MarkPaidOutput{}, NewHTTPError(http.StatusBadRequest, "invalid store_id")
	}

	var out MarkPaidOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		batchID := u.idGen.NewID()
		now := u.clock.Now()

		n, err := r.Payouts().MarkAllPendingPaid(ctx, storeID, batchID, now)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if n == 0 {
			return NewHTTPError(http.StatusBadRequest, "no pending payouts")
		}

		u.log.InfoContext(ctx, "payouts marked paid",
			"store_id", storeID, "batch_id", batchID, "count", n)

		out = MarkPaidOutput{BatchID: batchID, Count: n}
		return nil
	})
	if err != nil {
		return MarkPaidOutput{}, err
	}
	return out, nil
}

type UndoPayoutOutput struct {
	BatchID string `json:"batch_id"`
	Count   int64  `json:"count"`
}

// UndoLastPayout は直近のmark-paidだけを取り消す。
// 任意のバッチを戻せるようにすると二重取り消しが起きるので、
// 対象は常にpaid_atが最新のバッチ。
func (u *PayoutUsecase) UndoLastPayout(ctx context.Context, storeID int64) (UndoPayoutOutput, error) {
	if storeID <= 0 {
		return UndoPayoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid store_id")
	}

	var out UndoPayoutOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		batchID, err := r.Payouts().LatestPaidBatch(ctx, storeID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "no payout batch to undo")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		n, err := r.Payouts().RevertBatch(ctx, storeID, batchID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.log.InfoContext(ctx, "payout batch reverted",
			"store_id", storeID, "batch_id", batchID, "count", n)

		out = UndoPayoutOutput{BatchID: batchID, Count: n}
		return nil
	})
	if err != nil {
		return UndoPayoutOutput{}, err
	}
	return out, nil
}

// MarkFailed は個別の支払いを失敗扱いにする管理操作
// （振込先不備など）。PENDINGの行だけ対象。
func (u *PayoutUsecase) MarkFailed(ctx context.Context, payoutID int64) error {
	if payoutID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payouts().FindByID(ctx, payoutID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if p.Status != model.PayoutStatusPending {
			return NewHTTPError(http.StatusBadRequest, "payout is not pending")
		}

		if err := r.Payouts().UpdateStatus(ctx, payoutID, model.PayoutStatusFailed); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

// ListForStore は管理/出品者向けの台帳一覧。
func (u *PayoutUsecase) ListForStore(ctx context.Context, storeID int64) ([]model.Payout, error) {
	if storeID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid store_id")
	}

	var items []model.Payout
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		items, err = r.Payouts().ListByStoreID(ctx, storeID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
