package usecase

// 手数料の定数。すべてセント単位の整数で計算する。
// 決済手数料: 30セント + 2.9%、プラットフォーム手数料: 10%。
const (
	processorFixedFee = 30
	// レートは分数で持つ（浮動小数点を使うと合計が合わなくなる）
	processorRateNum = 29
	processorRateDen = 1000
	platformRateNum  = 10
	platformRateDen  = 100
)

type Fees struct {
	ProcessorFee int64 `json:"processor_fee"`
	PlatformFee  int64 `json:"platform_fee"`
	SellerNet    int64 `json:"seller_net"`
}

// CalculateFees は売上総額から手数料の内訳を出す。
// 常に ProcessorFee + PlatformFee + SellerNet == gross が成り立つ。
func CalculateFees(gross int64) Fees {
	if gross <= 0 {
		return Fees{}
	}

	processor := processorFixedFee + roundHalfUp(gross*processorRateNum, processorRateDen)
	platform := roundHalfUp(gross*platformRateNum, platformRateDen)

	return Fees{
		ProcessorFee: processor,
		PlatformFee:  platform,
		SellerNet:    gross - processor - platform,
	}
}

// 四捨五入（round half up）
func roundHalfUp(num int64, den int64) int64 {
	return (num + den/2) / den
}
