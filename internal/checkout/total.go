package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/pawmart/storefront/internal/cart"
)

// Total folds pricePerUnit × quantity over the resolved lines. A line whose
// detail fetch failed (nil Details) contributes zero, so the total is only
// final once every line has settled.
func Total(lines []cart.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, ln := range lines {
		if ln.Details == nil {
			continue
		}
		price := decimal.NewFromFloat(ln.Details.PricePerUnit)
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(ln.Item.Quantity))))
	}
	return sum
}
