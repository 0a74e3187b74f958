package repository

import (
	"context"

	"app/internal/domain/model"
)

type ListingRepository interface {
	Create(ctx context.Context, listing model.Listing) (int64, error)
	FindByID(ctx context.Context, listingID int64) (model.Listing, error)
	ListByStoreID(ctx context.Context, storeID int64, onlyActive bool) ([]model.Listing, error)
	// 公開/非公開の切り替え。reasonも同時に更新する。
	SetActive(ctx context.Context, listingID int64, active bool, reason model.DeactivatedReason) error

	// サブスク失効カスケード：公開中の全リスティングを落として理由を刻む。
	// 戻り値は更新行数（既に落ちていれば0＝冪等）。
	DeactivateActiveByStore(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error)
	// 復帰カスケード：指定理由で落とした行だけ戻す。出品者が自分で
	// 下書きにしたものは対象外。
	ReactivateByReason(ctx context.Context, storeID int64, reason model.DeactivatedReason) (int64, error)
}
