package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type PayoutRepository interface {
	// order_idのunique制約に乗せたinsert-or-ignore。
	// 同じ注文の支払いが既にあれば何もしない（created=false）。
	CreateIgnoreDuplicate(ctx context.Context, payout model.Payout) (bool, error)

	SumByStatus(ctx context.Context, storeID int64, status model.PayoutStatus) (int64, error)
	ListByStoreID(ctx context.Context, storeID int64) ([]model.Payout, error)
	FindByID(ctx context.Context, payoutID int64) (model.Payout, error)

	// PENDING全件をPAIDへ。batchIDとpaidAtを刻む。戻り値は更新行数。
	MarkAllPendingPaid(ctx context.Context, storeID int64, batchID string, paidAt time.Time) (int64, error)
	// 直近にPAIDへ倒したバッチのID（paid_atが最大のもの）。
	LatestPaidBatch(ctx context.Context, storeID int64) (string, error)
	// 指定バッチの行だけPENDINGへ戻し、batch_id/paid_atをクリアする。
	RevertBatch(ctx context.Context, storeID int64, batchID string) (int64, error)

	UpdateStatus(ctx context.Context, payoutID int64, status model.PayoutStatus) error
}
