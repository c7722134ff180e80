package rental

import (
	"errors"
	"fmt"

	"github.com/ayamesys/gearbook/model"
)

// Validation errors: the caller's input is wrong and retrying the same
// call can never succeed.
var (
	ErrInvalidInterval = errors.New("rental: start time must be before end time")
	ErrPastStartDate   = errors.New("rental: start time is in the past")
)

// Conflict errors: legitimate concurrent-state conflicts. Not retryable
// as-is, but the caller may change parameters or force an override.
var (
	ErrItemUnavailable  = errors.New("rental: item is not available")
	ErrItemNotRented    = errors.New("rental: item is not checked out")
	ErrOutOfStock       = errors.New("rental: resource is out of stock")
	ErrResourceNotFound = errors.New("rental: resource type not found")
	ErrItemNotFound     = errors.New("rental: resource item not found")
	ErrBookingNotFound  = errors.New("rental: booking not found")
	ErrResourceBusy     = errors.New("rental: resource is locked by another request, retry")
)

// SlotTakenError reports that the requested interval overlaps active
// bookings by other requesters. Conflicts carries the overlapping
// bookings so the caller can show them and optionally resubmit with
// AllowOverlap.
type SlotTakenError struct {
	Conflicts []model.Booking
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("rental: interval overlaps %d active booking(s)", len(e.Conflicts))
}

// IllegalTransitionError reports a booking status transition outside
// the legal lifecycle graph.
type IllegalTransitionError struct {
	From model.BookingStatus
	To   model.BookingStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("rental: illegal transition %s -> %s", e.From, e.To)
}
