package cart

import (
	"time"

	"sickfits-be/internal/item"
)

// CartItem is one cart line. There is at most one per (UserID, ItemID).
type CartItem struct {
	ID        string
	UserID    string
	ItemID    string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time

	Item *item.Item
}

// Total is the sum of price times quantity over lines.
func Total(lines []*CartItem) int {
	total := 0
	for _, l := range lines {
		if l.Item == nil {
			continue
		}
		total += l.Item.Price * l.Quantity
	}
	return total
}
