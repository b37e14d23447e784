package cart

import "github.com/pawmart/storefront/internal/catalog"

type Item struct {
	CartItemID      int64   `json:"cartItemId"`
	CartID          int64   `json:"cartId"`
	ItemInventoryID int64   `json:"itemInventoryId"`
	Quantity        int     `json:"quantity"`
	TotalAmount     float64 `json:"totalAmount"` // snapshot at add time, not trusted for totals
}

type Cart struct {
	CartID        int64   `json:"cartId"`
	UserID        string  `json:"userId"`
	Items         []Item  `json:"cartItems"`
	LastUpdatedAt string  `json:"lastUpdatedAt"`
	TotalAmount   float64 `json:"cartTotalAmount"`
}

// Line pairs a cart line with its freshly fetched item details. Details stays
// nil when the detail fetch for that line failed; the rest of the view is
// still usable.
type Line struct {
	Item    Item          `json:"item"`
	Details *catalog.Item `json:"details"`
}

// View is one aggregation pass over a user's cart. Lines keep the cart's
// order; population is per-line independent.
type View struct {
	Cart  Cart   `json:"cart"`
	Lines []Line `json:"lines"`
}
