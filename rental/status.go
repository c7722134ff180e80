package rental

import "github.com/ayamesys/gearbook/model"

// transitions is the booking lifecycle graph. Missing key = terminal.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingPending:    {model.BookingApproved, model.BookingRejected, model.BookingCancelled},
	model.BookingApproved:   {model.BookingCheckedOut, model.BookingCancelled},
	model.BookingCheckedOut: {model.BookingReturned},
}

// ActiveStatuses are the statuses that still occupy capacity and must
// be considered when checking interval overlap.
var ActiveStatuses = []model.BookingStatus{
	model.BookingPending,
	model.BookingApproved,
	model.BookingCheckedOut,
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssertTransition returns an *IllegalTransitionError carrying both
// statuses when from → to is not legal. Every status write in the
// booking engine goes through this check.
func AssertTransition(from, to model.BookingStatus) error {
	if !CanTransition(from, to) {
		return &IllegalTransitionError{From: from, To: to}
	}
	return nil
}
