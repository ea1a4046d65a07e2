package commission_fee

const (
	TaiwanBuyRate  = 0.001425
	TaiwanSellRate = 0.001425
	TaiwanTaxRate  = 0.003
)

// NewTaiwanStandardCommissionFee charges the list brokerage rate on both sides
// and the securities transaction tax on sales.
func NewTaiwanStandardCommissionFee() CommissionFee {
	return NewRateCommissionFee(Rates{
		BuyRate:  TaiwanBuyRate,
		SellRate: TaiwanSellRate,
		TaxRate:  TaiwanTaxRate,
	})
}

// DefaultConfig returns the Taiwan standard cost model.
func DefaultConfig() Config {
	return Config{
		Broker: BrokerTaiwanStandard,
		Rates: Rates{
			BuyRate:  TaiwanBuyRate,
			SellRate: TaiwanSellRate,
			TaxRate:  TaiwanTaxRate,
		},
	}
}
