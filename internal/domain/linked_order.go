package domain

import "time"

// LinkedOrder maps a position to its active take-profit / stop-loss order ids
// on the execution backend. At most one link exists per position; either leg
// may be absent when only one protective order was requested.
type LinkedOrder struct {
	PositionID string
	TPOrderID  *string
	SLOrderID  *string
	Kind       OrderKind
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasLeg reports whether the given order id is one of the link's legs.
func (l LinkedOrder) HasLeg(orderID string) bool {
	return (l.TPOrderID != nil && *l.TPOrderID == orderID) ||
		(l.SLOrderID != nil && *l.SLOrderID == orderID)
}

// Opposite returns the id of the leg paired with orderID, or nil when the
// link has no other leg.
func (l LinkedOrder) Opposite(orderID string) *string {
	if l.TPOrderID != nil && *l.TPOrderID == orderID {
		return l.SLOrderID
	}
	if l.SLOrderID != nil && *l.SLOrderID == orderID {
		return l.TPOrderID
	}
	return nil
}
