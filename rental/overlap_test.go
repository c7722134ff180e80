package rental_test

import (
	"testing"
	"time"

	"github.com/ayamesys/gearbook/model"
	"github.com/ayamesys/gearbook/rental"
	"github.com/ayamesys/gearbook/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var base = time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

// at returns base plus h hours.
func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func seedBooking(t *testing.T, db *gorm.DB, b model.Booking) model.Booking {
	t.Helper()
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func TestFindConflicts_HalfOpenBoundary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedBooking(t, db, model.Booking{
		RequesterID: 1, ResourceTypeID: 10,
		StartTime: at(10), EndTime: at(11), // [10:00, 11:00)
	})

	// Touching endpoints do not conflict.
	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(11), End: at(12),
	})
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(9), End: at(10),
	})
	require.NoError(t, err)
	assert.Empty(t, out)

	// Any real intersection does.
	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(10), End: at(11),
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(9), End: at(23),
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestFindConflicts_DefaultActiveStatuses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	for _, st := range []model.BookingStatus{
		model.BookingPending, model.BookingApproved, model.BookingCheckedOut,
		model.BookingReturned, model.BookingRejected, model.BookingCancelled,
	} {
		seedBooking(t, db, model.Booking{
			RequesterID: 1, ResourceTypeID: 10,
			StartTime: at(0), EndTime: at(24), Status: st,
		})
	}

	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
	})
	require.NoError(t, err)
	require.Len(t, out, 3, "terminal statuses must not occupy capacity")
	for _, b := range out {
		assert.False(t, b.Status.Terminal())
	}
}

func TestFindConflicts_CallerStatusFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedBooking(t, db, model.Booking{RequesterID: 1, ResourceTypeID: 10,
		StartTime: at(0), EndTime: at(24), Status: model.BookingPending})
	seedBooking(t, db, model.Booking{RequesterID: 2, ResourceTypeID: 10,
		StartTime: at(0), EndTime: at(24), Status: model.BookingApproved})

	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target:   model.Target{ResourceTypeID: 10},
		Start:    at(1), End: at(2),
		Statuses: []model.BookingStatus{model.BookingApproved},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.BookingApproved, out[0].Status)
}

func TestFindConflicts_SerializedVsAggregate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	itemA, itemB := int64(101), int64(102)
	seedBooking(t, db, model.Booking{RequesterID: 1, ResourceTypeID: 10,
		ResourceItemID: &itemA, StartTime: at(0), EndTime: at(24)})
	seedBooking(t, db, model.Booking{RequesterID: 2, ResourceTypeID: 10,
		ResourceItemID: &itemB, StartTime: at(0), EndTime: at(24)})

	// Item-scoped query sees only its own item's bookings.
	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10, ItemID: itemA},
		Start:  at(1), End: at(2),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, &itemA, out[0].ResourceItemID)

	// Aggregate query conservatively sees every booking of the type.
	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestFindConflicts_Exclusions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mine := seedBooking(t, db, model.Booking{RequesterID: 1, ResourceTypeID: 10,
		StartTime: at(0), EndTime: at(24)})
	seedBooking(t, db, model.Booking{RequesterID: 2, ResourceTypeID: 10,
		StartTime: at(0), EndTime: at(24)})

	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
		ExcludeBookingID: mine.ID,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEqual(t, mine.ID, out[0].ID)

	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
		ExcludeRequesterID: 2,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].RequesterID)

	out, err = rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
		RequesterID: 1,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, mine.ID, out[0].ID)
}

func TestFindConflicts_OrderedByStartTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedBooking(t, db, model.Booking{RequesterID: 1, ResourceTypeID: 10,
		StartTime: at(8), EndTime: at(9)})
	seedBooking(t, db, model.Booking{RequesterID: 2, ResourceTypeID: 10,
		StartTime: at(2), EndTime: at(3)})
	seedBooking(t, db, model.Booking{RequesterID: 3, ResourceTypeID: 10,
		StartTime: at(5), EndTime: at(6)})

	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(0), End: at(24),
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].StartTime.Before(out[i-1].StartTime))
	}
}

func TestFindConflicts_OtherResourceUnaffected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedBooking(t, db, model.Booking{RequesterID: 1, ResourceTypeID: 99,
		StartTime: at(0), EndTime: at(24)})

	out, err := rental.FindConflicts(db, rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: 10},
		Start:  at(1), End: at(2),
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
