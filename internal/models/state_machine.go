package models

import "fmt"

// ValidSubOrderTransitions defines valid state transitions for a supplier
// sub-order. Flow: pending → confirmed → processing → shipped → delivered.
// cancelled/failed can be reached from any non-terminal state; a sub-order
// never moves backwards.
var ValidSubOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusFailed},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusFailed},
	OrderStatusDelivered:  {}, // Terminal state
	OrderStatusCancelled:  {}, // Terminal state
	OrderStatusFailed:     {}, // Terminal state
}

// statusRank orders canonical statuses by how far along the fulfillment
// flow they are. Used when consolidating sub-order statuses into a
// parent status.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusFailed:     0,
	OrderStatusCancelled:  0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// CanTransitionSubOrderStatus checks if a sub-order transition is valid.
func CanTransitionSubOrderStatus(from, to OrderStatus) bool {
	validTransitions, exists := ValidSubOrderTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// ValidateSubOrderTransition returns an error if the transition is invalid.
func ValidateSubOrderTransition(from, to OrderStatus) error {
	if !CanTransitionSubOrderStatus(from, to) {
		return fmt.Errorf("invalid sub-order status transition from %s to %s", from, to)
	}
	return nil
}

// StatusRank returns the fulfillment progress rank of a status.
func StatusRank(s OrderStatus) int {
	return statusRank[s]
}

// ConsolidateStatuses derives the parent order status from its sub-order
// statuses: the most advanced status wins, except delivered, which is
// only reported when every sub-order has been delivered.
func ConsolidateStatuses(statuses []OrderStatus) OrderStatus {
	if len(statuses) == 0 {
		return OrderStatusPending
	}

	overall := OrderStatusPending
	allDelivered := true
	for _, s := range statuses {
		if s != OrderStatusDelivered {
			allDelivered = false
		}
		if StatusRank(s) > StatusRank(overall) {
			overall = s
		}
	}

	if overall == OrderStatusDelivered && !allDelivered {
		return OrderStatusShipped
	}
	return overall
}
