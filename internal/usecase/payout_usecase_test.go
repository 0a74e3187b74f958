package usecase

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newPayoutUsecaseForTest(repos *txReposStub, now time.Time) *PayoutUsecase {
	return NewPayoutUsecase(&txManagerStub{repos: repos}, &seqIDGen{}, &fixedClock{t: now}, discardLogger())
}

func TestPayoutBalance(t *testing.T) {
	now := date(2025, time.September, 3)
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, now)

	repos.stores.On("FindByID", mock.Anything, int64(5)).Return(model.Store{ID: 5}, nil)
	repos.payouts.On("SumByStatus", mock.Anything, int64(5), model.PayoutStatusPending).Return(int64(8410), nil)
	repos.payouts.On("SumByStatus", mock.Anything, int64(5), model.PayoutStatusPaid).Return(int64(2000), nil)

	out, err := uc.Balance(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, int64(8410), out.PendingAmount)
	assert.Equal(t, int64(2000), out.PaidAmount)
	// 9/3の次の支払日は第3火曜の9/16
	assert.Equal(t, date(2025, time.September, 16), out.NextPayoutDate)
}

func TestPayoutBalance_StoreNotFound(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.stores.On("FindByID", mock.Anything, int64(99)).Return(model.Store{}, repo.ErrNotFound)

	_, err := uc.Balance(context.Background(), 99)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestPayoutMarkPaid_StampsBatch(t *testing.T) {
	now := time.Now()
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, now)

	repos.payouts.On("MarkAllPendingPaid", mock.Anything, int64(5), "batch-1", now).
		Return(int64(3), nil)

	out, err := uc.MarkPaid(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, "batch-1", out.BatchID)
	assert.Equal(t, int64(3), out.Count)

	repos.payouts.AssertExpectations(t)
}

func TestPayoutMarkPaid_NoPending(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.payouts.On("MarkAllPendingPaid", mock.Anything, int64(5), mock.Anything, mock.Anything).
		Return(int64(0), nil)

	_, err := uc.MarkPaid(context.Background(), 5)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "no pending payouts", he.Message)
}

func TestPayoutUndoLast_RevertsOnlyLatestBatch(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.payouts.On("LatestPaidBatch", mock.Anything, int64(5)).Return("batch-9", nil)
	repos.payouts.On("RevertBatch", mock.Anything, int64(5), "batch-9").Return(int64(3), nil)

	out, err := uc.UndoLastPayout(context.Background(), 5)
	assert.NoError(t, err)
	assert.Equal(t, "batch-9", out.BatchID)
	assert.Equal(t, int64(3), out.Count)

	repos.payouts.AssertExpectations(t)
}

func TestPayoutUndoLast_NothingToUndo(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.payouts.On("LatestPaidBatch", mock.Anything, int64(5)).Return("", repo.ErrNotFound)

	_, err := uc.UndoLastPayout(context.Background(), 5)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)

	repos.payouts.AssertNotCalled(t, "RevertBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayoutMarkFailed_OnlyPending(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.payouts.On("FindByID", mock.Anything, int64(11)).
		Return(model.Payout{ID: 11, Status: model.PayoutStatusPaid}, nil)

	err := uc.MarkFailed(context.Background(), 11)
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)

	repos.payouts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestPayoutMarkFailed_Success(t *testing.T) {
	repos := newTxReposStub()
	uc := newPayoutUsecaseForTest(repos, time.Now())

	repos.payouts.On("FindByID", mock.Anything, int64(11)).
		Return(model.Payout{ID: 11, Status: model.PayoutStatusPending}, nil)
	repos.payouts.On("UpdateStatus", mock.Anything, int64(11), model.PayoutStatusFailed).Return(nil)

	assert.NoError(t, uc.MarkFailed(context.Background(), 11))
	repos.payouts.AssertExpectations(t)
}
