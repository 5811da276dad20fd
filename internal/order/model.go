package order

import "time"

type Order struct {
	ID         string
	UserID     string
	Total      int
	Charge     string
	CheckoutID *string
	CreatedAt  time.Time
	Items      []*OrderItem
}

// OrderItem is a copy of an item's fields taken at purchase time. It carries
// no reference back to the item.
type OrderItem struct {
	ID          string
	OrderID     string
	Title       string
	Description string
	Image       *string
	LargeImage  *string
	Price       int
	Quantity    int
}

type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "PENDING"
	CheckoutCharged   CheckoutStatus = "CHARGED"
	CheckoutCompleted CheckoutStatus = "COMPLETED"
	CheckoutFailed    CheckoutStatus = "FAILED"
)

// CheckoutLine snapshots one cart line when the checkout starts.
type CheckoutLine struct {
	CartItemID  string  `json:"cartItemId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       *string `json:"image,omitempty"`
	LargeImage  *string `json:"largeImage,omitempty"`
	Price       int     `json:"price"`
	Quantity    int     `json:"quantity"`
}

// Checkout is the persisted state of one createOrder attempt.
type Checkout struct {
	ID             string
	UserID         string
	IdempotencyKey string
	Amount         int
	Currency       string
	Source         string
	Status         CheckoutStatus
	ChargeID       *string
	ChargedAmount  *int
	Lines          []CheckoutLine
	OrderID        *string
	FailureReason  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// consumption lists the cart lines a snapshot consumes and how many units of each.
func consumption(lines []CheckoutLine) (ids []string, quantities []int64) {
	ids = make([]string, len(lines))
	quantities = make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.CartItemID
		quantities[i] = int64(l.Quantity)
	}
	return ids, quantities
}

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	Finalized int
	Abandoned int
	Errors    int
}
