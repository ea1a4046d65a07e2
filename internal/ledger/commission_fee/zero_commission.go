package commission_fee

import "github.com/shopspring/decimal"

type ZeroCommissionFee struct {
}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

func (c *ZeroCommissionFee) BuyCost(_ decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (c *ZeroCommissionFee) SellCost(_ decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (c *ZeroCommissionFee) Rates() Rates {
	return Rates{}
}
