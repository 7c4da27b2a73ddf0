package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the states reachable from each state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusServed, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusServed, OrderStatusPaid, OrderStatusCancelled},
	OrderStatusServed:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

var ErrUnknownOrderStatus = errors.New("unknown order status")

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOrderStatus, s)
	}
	return status, nil
}

// IsValid reports whether s is one of the known statuses.
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// TableReleasingStatuses are the states whose entry frees the order's table.
var TableReleasingStatuses = []OrderStatus{OrderStatusPaid, OrderStatusCancelled}

// ClosedOrderStatuses are the states in which an order no longer keeps its
// table occupied. Completed is only reachable from paid.
var ClosedOrderStatuses = []OrderStatus{OrderStatusPaid, OrderStatusCompleted, OrderStatusCancelled}

// ReleasesTable reports whether moving an order into this state frees its
// table.
func (s OrderStatus) ReleasesTable() bool {
	return containsStatus(TableReleasingStatuses, s)
}

// HoldsTable reports whether an order in this state keeps its table occupied.
func (s OrderStatus) HoldsTable() bool {
	return !containsStatus(ClosedOrderStatuses, s)
}

func containsStatus(statuses []OrderStatus, s OrderStatus) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsSplittable reports whether an order in this state may be split.
func (s OrderStatus) IsSplittable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed || s == OrderStatusServed
}

// CanTransitionTo reports whether next is reachable from s. Rewriting the
// current status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return s.IsValid()
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PendingOrderPrefix marks identifiers the client generated for orders that
// have not been stored yet.
const PendingOrderPrefix = "temp_"

// OrderRef identifies an order either by its stored id or by a client token
// for an order that only exists on the client so far.
type OrderRef struct {
	id    int64
	token string
}

// PersistedRef references a stored order.
func PersistedRef(id int64) OrderRef { return OrderRef{id: id} }

// PendingRef references an order that has not been stored yet.
func PendingRef(token string) OrderRef { return OrderRef{token: token} }

var ErrInvalidOrderRef = errors.New("invalid order reference")

// ParseOrderRef parses a path parameter into an OrderRef.
func ParseOrderRef(raw string) (OrderRef, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, PendingOrderPrefix) {
		if len(raw) == len(PendingOrderPrefix) {
			return OrderRef{}, fmt.Errorf("%w: empty client token", ErrInvalidOrderRef)
		}
		return PendingRef(raw), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return OrderRef{}, fmt.Errorf("%w: %q", ErrInvalidOrderRef, raw)
	}
	return PersistedRef(id), nil
}

// ID returns the stored id and true for persisted references.
func (r OrderRef) ID() (int64, bool) { return r.id, r.token == "" && r.id > 0 }

// Token returns the client token and true for pending references.
func (r OrderRef) Token() (string, bool) { return r.token, r.token != "" }

// IsPending reports whether r points at an order not stored yet.
func (r OrderRef) IsPending() bool { return r.token != "" }

func (r OrderRef) String() string {
	if r.IsPending() {
		return r.token
	}
	return strconv.FormatInt(r.id, 10)
}
