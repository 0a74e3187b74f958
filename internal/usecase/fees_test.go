package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFees_KnownBreakdown(t *testing.T) {
	// $10.00 → 決済手数料 30 + 29 = 59、プラットフォーム 100
	fees := CalculateFees(1000)

	assert.Equal(t, int64(59), fees.ProcessorFee)
	assert.Equal(t, int64(100), fees.PlatformFee)
	assert.Equal(t, int64(841), fees.SellerNet)
}

func TestCalculateFees_RoundHalfUp(t *testing.T) {
	// 2.9% of 1050 = 30.45 → 30、of 1060 = 30.74 → 31
	assert.Equal(t, int64(30+30), CalculateFees(1050).ProcessorFee)
	assert.Equal(t, int64(30+31), CalculateFees(1060).ProcessorFee)

	// 10% of 1005 = 100.5 → 101（half up）
	assert.Equal(t, int64(101), CalculateFees(1005).PlatformFee)
}

// 内訳の合計は必ず総額と一致する。丸めで1セントでもずれたら即バグ。
func TestCalculateFees_SumEqualsGross(t *testing.T) {
	for gross := int64(1); gross <= 5000; gross++ {
		fees := CalculateFees(gross)
		sum := fees.ProcessorFee + fees.PlatformFee + fees.SellerNet
		if sum != gross {
			t.Fatalf("gross=%d: breakdown sums to %d", gross, sum)
		}
	}
}

func TestCalculateFees_ZeroAndNegative(t *testing.T) {
	assert.Equal(t, Fees{}, CalculateFees(0))
	assert.Equal(t, Fees{}, CalculateFees(-100))
}
