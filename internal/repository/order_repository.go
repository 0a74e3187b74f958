package repository

import (
	"context"

	"app/internal/domain/model"
)

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, bool, error)

	// payment_intent_idのunique制約に乗せたinsert-or-ignore。
	// 既に同じ決済の注文があれば既存行を返し createdはfalse。
	// count-then-insertはしない（同時配送で二重登録するため）。
	CreateIgnoreDuplicate(ctx context.Context, order model.Order) (model.Order, bool, error)

	// ストア内の次の表示用連番。呼び出し側のトランザクション内で使う。
	NextOrderNumber(ctx context.Context, storeID int64) (int64, error)

	UpdateStatusByPaymentIntentID(ctx context.Context, paymentIntentID string, status model.OrderStatus) error
	ListByStoreID(ctx context.Context, storeID int64, page int, limit int) ([]model.Order, int64, error)
}
