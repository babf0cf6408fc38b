package enums

import "fmt"

// StockMovementKind labels the ledger verb that produced a stock movement.
type StockMovementKind string

const (
	StockMovementKindReserve    StockMovementKind = "reserve"
	StockMovementKindRelease    StockMovementKind = "release"
	StockMovementKindReconcile  StockMovementKind = "reconcile"
	StockMovementKindCorrection StockMovementKind = "correction"
)

var validStockMovementKinds = []StockMovementKind{
	StockMovementKindReserve,
	StockMovementKindRelease,
	StockMovementKindReconcile,
	StockMovementKindCorrection,
}

// String implements fmt.Stringer.
func (v StockMovementKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known StockMovementKind.
func (v StockMovementKind) IsValid() bool {
	for _, candidate := range validStockMovementKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseStockMovementKind converts raw input into a StockMovementKind.
func ParseStockMovementKind(value string) (StockMovementKind, error) {
	for _, candidate := range validStockMovementKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement kind %q", value)
}
