package payment

import "context"

// Gateway captures card payments. Every charge carries an idempotency key so
// a retried request never charges twice.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// FindCharge returns the successful charge tagged with idempotencyKey, or
	// (nil, nil) when the provider has none.
	FindCharge(ctx context.Context, idempotencyKey string) (*Charge, error)
}
