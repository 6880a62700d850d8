package order

import (
	"database/sql/driver"
	"fmt"
)

// Status is the delivery lifecycle state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// progression is the forward order of the non-cancelled states.
var progression = map[Status]int{
	StatusPending:        0,
	StatusConfirmed:      1,
	StatusPreparing:      2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// ParseStatus maps a lowercase status name to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st == StatusCancelled {
		return st, nil
	}
	if _, ok := progression[st]; ok {
		return st, nil
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether an order in s may move to next.
// Orders only move forward; cancelling is allowed until delivery. Repeating
// the current status of a live order is allowed so the ETA can be moved.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusCancelled || next == s {
		return true
	}

	from, ok := progression[s]
	if !ok {
		return false
	}
	to, ok := progression[next]
	if !ok {
		return false
	}

	return to > from
}
