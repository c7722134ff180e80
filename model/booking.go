package model

import "time"

// BookingStatus is the lifecycle status of a rental booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingApproved   BookingStatus = "APPROVED"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingReturned   BookingStatus = "RETURNED"
	BookingRejected   BookingStatus = "REJECTED"
	BookingCancelled  BookingStatus = "CANCELLED"
)

// Booking is a time-bounded request/grant of a resource to a requester.
// The interval is half-open: [StartTime, EndTime). ResourceItemID is nil
// for aggregate bookings against the whole type. RequesterName is a
// snapshot taken at creation so history survives account deletion.
type Booking struct {
	ID             int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	RequesterID    int64         `gorm:"not null;index:idx_booking_requester" json:"requester_id"`
	RequesterName  string        `gorm:"size:64" json:"requester_name"`
	ResourceTypeID int64         `gorm:"not null;index:idx_booking_resource" json:"resource_type_id"`
	ResourceItemID *int64        `gorm:"index:idx_booking_item" json:"resource_item_id,omitempty"`
	StartTime      time.Time     `gorm:"not null;index:idx_booking_start" json:"start_time"`
	EndTime        time.Time     `gorm:"not null" json:"end_time"`
	Status         BookingStatus `gorm:"size:16;not null;default:'PENDING';index:idx_booking_status" json:"status"`
	RequestNote    string        `gorm:"type:text" json:"request_note,omitempty"`
	RejectReason   string        `gorm:"size:255" json:"reject_reason,omitempty"`
	CancelReason   string        `gorm:"size:255" json:"cancel_reason,omitempty"`
	// Pickup/return evidence is opaque to the booking engine (URLs, refs).
	PickupEvidence string    `gorm:"size:255" json:"pickup_evidence,omitempty"`
	ReturnEvidence string    `gorm:"size:255" json:"return_evidence,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Target identifies what a booking occupies: a whole resource type, or
// one serialized item of it. ItemID zero means aggregate.
type Target struct {
	ResourceTypeID int64
	ItemID         int64
}

// Serialized reports whether the target is a specific item.
func (t Target) Serialized() bool { return t.ItemID != 0 }

// TargetFor builds a Target from a type ID and an optional item ID.
func TargetFor(resourceTypeID int64, itemID *int64) Target {
	t := Target{ResourceTypeID: resourceTypeID}
	if itemID != nil {
		t.ItemID = *itemID
	}
	return t
}

// Target returns the booking's occupancy target.
func (b *Booking) Target() Target {
	return TargetFor(b.ResourceTypeID, b.ResourceItemID)
}

// Terminal reports whether the status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingReturned, BookingRejected, BookingCancelled:
		return true
	}
	return false
}
