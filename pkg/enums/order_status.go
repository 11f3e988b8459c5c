package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the fulfilment state of an order. The tracking row mirrors it.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusDispatched     OrderStatus = "DISPATCHED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusReturned       OrderStatus = "RETURNED"
)

// fulfilmentChain orders the forward progression of an order.
var fulfilmentChain = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusDispatched,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

var validOrderStatuses = append(append([]OrderStatus{}, fulfilmentChain...), OrderStatusCancelled, OrderStatusReturned)

// PendingOrderStatuses are the statuses counted as "pending" in analytics.
var PendingOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusConfirmed,
	OrderStatusPacked,
	OrderStatusDispatched,
	OrderStatusOutForDelivery,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPending reports whether the order is still moving through fulfilment.
func (s OrderStatus) IsPending() bool {
	for _, candidate := range PendingOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusReturned
}

func (s OrderStatus) chainIndex() int {
	for i, candidate := range fulfilmentChain {
		if candidate == s {
			return i
		}
	}
	return -1
}

// CanTransitionTo applies the order transition table:
//   - along PLACED..DELIVERED only forward moves are allowed (steps may be skipped)
//   - CANCELLED and RETURNED are reachable from any pending status
//   - DELIVERED may become RETURNED
//   - CANCELLED and RETURNED are terminal
//
// Re-applying the current status is always accepted.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	switch next {
	case OrderStatusCancelled:
		return s.IsPending()
	case OrderStatusReturned:
		return s.IsPending() || s == OrderStatusDelivered
	}
	from, to := s.chainIndex(), next.chainIndex()
	return from >= 0 && to > from
}

// ParseOrderStatus trims and upper-cases value before matching.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// OrderStatusValues lists every status, for error details.
func OrderStatusValues() []string {
	out := make([]string, 0, len(validOrderStatuses))
	for _, status := range validOrderStatuses {
		out = append(out, string(status))
	}
	return out
}
