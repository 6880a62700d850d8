package money

import "github.com/shopspring/decimal"

// Precision is the number of decimal places an order total is rounded to.
const Precision = 2

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Subtotal returns price * quantity without rounding.
func Subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums the amounts and rounds the result to Precision places.
func Total(amounts ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}

	return sum.Round(Precision)
}
