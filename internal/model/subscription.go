package model

import "time"

// Subscription is a shopper's request to be emailed when a sold-out line
// comes back in stock.
type Subscription struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Variant   string    `json:"variant"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// DispatchResult summarises one notification pass.
type DispatchResult struct {
	Matched      int      `json:"matched"`
	Emailed      int      `json:"emailed"`
	SendErrors   int      `json:"sendErrors"`
	SucceededIDs []string `json:"-"`
}
