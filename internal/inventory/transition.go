// Package inventory holds the stock state machine shared by every entry point.
package inventory

// State is the stock state of one inventory line.
type State string

const (
	OutOfStock State = "OUT_OF_STOCK"
	InStock    State = "IN_STOCK"
)

// StateOf maps a quantity onto its stock state.
func StateOf(qty int) State {
	if qty > 0 {
		return InStock
	}
	return OutOfStock
}

// ShouldNotify reports whether a committed quantity change is a restock
// transition. It must be called with the exact pair returned by one write.
func ShouldNotify(prevQty, nextQty int) bool {
	return prevQty <= 0 && nextQty > 0
}
