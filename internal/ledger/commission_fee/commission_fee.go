package commission_fee

import "github.com/shopspring/decimal"

// CommissionFee prices the costs of one side of a trade. Values are in TWD.
type CommissionFee interface {
	// BuyCost returns the fee charged on a purchase of the given value.
	BuyCost(value decimal.Decimal) decimal.Decimal
	// SellCost returns the commission plus transaction tax charged on a sale.
	SellCost(value decimal.Decimal) decimal.Decimal
	// Rates returns the rates used by this handler.
	Rates() Rates
}

type Broker string

const (
	BrokerTaiwanStandard Broker = "taiwan_standard"
	BrokerCustom         Broker = "custom"
	BrokerZero           Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerTaiwanStandard,
	BrokerCustom,
	BrokerZero,
}

// Rates are the cost fractions applied to trade value.
type Rates struct {
	BuyRate  float64 `yaml:"buy_rate" json:"buy_rate" jsonschema:"title=Buy Rate,description=Commission on purchases as a fraction of value,default=0.001425" validate:"gte=0,lt=1"`
	SellRate float64 `yaml:"sell_rate" json:"sell_rate" jsonschema:"title=Sell Rate,description=Commission on sales as a fraction of value,default=0.001425" validate:"gte=0,lt=1"`
	TaxRate  float64 `yaml:"tax_rate" json:"tax_rate" jsonschema:"title=Tax Rate,description=Securities transaction tax on sales,default=0.003" validate:"gte=0,lt=1"`
}

// Config selects a broker. Rates are only read for the custom broker.
type Config struct {
	Broker Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Cost model,enum=taiwan_standard,enum=custom,enum=zero_commission,default=taiwan_standard" validate:"required,oneof=taiwan_standard custom zero_commission"`
	Rates  `yaml:",inline"`
}

func GetCommissionFeeHandler(cfg Config) CommissionFee {
	switch cfg.Broker {
	case BrokerTaiwanStandard:
		return NewTaiwanStandardCommissionFee()
	case BrokerCustom:
		return NewRateCommissionFee(cfg.Rates)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewTaiwanStandardCommissionFee()
	}
}

// RateCommissionFee charges flat fractions of trade value.
type RateCommissionFee struct {
	rates Rates
}

func NewRateCommissionFee(rates Rates) CommissionFee {
	return &RateCommissionFee{rates: rates}
}

func (c *RateCommissionFee) BuyCost(value decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromFloat(c.rates.BuyRate))
}

func (c *RateCommissionFee) SellCost(value decimal.Decimal) decimal.Decimal {
	return value.Mul(decimal.NewFromFloat(c.rates.SellRate).Add(decimal.NewFromFloat(c.rates.TaxRate)))
}

func (c *RateCommissionFee) Rates() Rates {
	return c.rates
}
