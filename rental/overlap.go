package rental

import (
	"time"

	"github.com/ayamesys/gearbook/model"
	"gorm.io/gorm"
)

// ConflictQuery describes one overlap lookup. It is a plain value so
// every exclusion the callers rely on is a named, testable parameter
// instead of an ad hoc query chain.
//
// Two half-open intervals [s1,e1) and [s2,e2) conflict iff
// s1 < e2 && e1 > s2; touching endpoints do not conflict.
type ConflictQuery struct {
	Target model.Target
	Start  time.Time
	End    time.Time

	// Statuses filters bookings by status; nil means ActiveStatuses.
	Statuses []model.BookingStatus
	// RequesterID, when non-zero, restricts to that requester's bookings
	// (used for self-supersession).
	RequesterID int64
	// ExcludeRequesterID, when non-zero, skips that requester's bookings.
	ExcludeRequesterID int64
	// ExcludeBookingID, when non-zero, skips that booking (exclude self).
	ExcludeBookingID int64
}

// FindConflicts returns the bookings intersecting the query interval,
// ordered by start time ascending. It is side-effect free and may run
// inside or outside a transaction.
//
// For a serialized target only bookings against that exact item match;
// an aggregate target conservatively matches every booking of the
// resource type regardless of item.
func FindConflicts(db *gorm.DB, q ConflictQuery) ([]model.Booking, error) {
	statuses := q.Statuses
	if statuses == nil {
		statuses = ActiveStatuses
	}

	tx := db.Model(&model.Booking{}).
		Where("resource_type_id = ?", q.Target.ResourceTypeID).
		Where("start_time < ? AND end_time > ?", q.End, q.Start).
		Where("status IN ?", statuses)

	if q.Target.Serialized() {
		tx = tx.Where("resource_item_id = ?", q.Target.ItemID)
	}
	if q.RequesterID != 0 {
		tx = tx.Where("requester_id = ?", q.RequesterID)
	}
	if q.ExcludeRequesterID != 0 {
		tx = tx.Where("requester_id <> ?", q.ExcludeRequesterID)
	}
	if q.ExcludeBookingID != 0 {
		tx = tx.Where("id <> ?", q.ExcludeBookingID)
	}

	var out []model.Booking
	if err := tx.Order("start_time ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
