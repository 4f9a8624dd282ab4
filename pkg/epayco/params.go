package epayco

import (
	"github.com/shopspring/decimal"
)

// PSEChargeParams carries everything needed to open a PSE charge.
// Monetary fields stay decimal here; the client converts them to the
// integer wire format ePayco expects.
type PSEChargeParams struct {
	InvoiceNumber string
	Description   string

	Amount  decimal.Decimal
	TaxBase decimal.Decimal
	Tax     decimal.Decimal

	BankCode string

	DocType   string
	DocNumber string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	City      string
	ClientIP  string

	ExtraData map[string]string
}

// TaxBreakdown converts a decimal tax pair into the reconciled integer
// triple ePayco requires: value is recomputed as taxBase + tax after
// rounding so the three always agree even when the decimals do not
// round cleanly.
func TaxBreakdown(taxBase, tax decimal.Decimal) (value, base, taxInt int64) {
	base = taxBase.Round(0).IntPart()
	taxInt = tax.Round(0).IntPart()
	if base < 0 {
		base = 0
	}
	if taxInt < 0 {
		taxInt = 0
	}
	return base + taxInt, base, taxInt
}

// DecomposeGross splits a VAT-inclusive gross amount using a fixed rate:
// tax = gross * rate / (1 + rate), base = gross - tax.
func DecomposeGross(gross, rate decimal.Decimal) (base, tax decimal.Decimal) {
	if gross.Sign() <= 0 || rate.Sign() <= 0 {
		return gross, decimal.Zero
	}
	one := decimal.NewFromInt(1)
	tax = gross.Mul(rate).Div(one.Add(rate)).Round(2)
	base = gross.Sub(tax)
	return base, tax
}
