package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayamesys/gearbook/audit"
	"github.com/ayamesys/gearbook/config"
	"github.com/ayamesys/gearbook/inventory"
	"github.com/ayamesys/gearbook/model"
	"github.com/ayamesys/gearbook/rental"
	"github.com/ayamesys/gearbook/testutil"
)

// TestFullRentalLifecycle walks one piece of equipment through the whole
// engine: inventory setup, competing requests, approval with auto
// rejection, checkout, and return, then checks the event trail.
func TestFullRentalLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	events := audit.New(db, logger)

	invSvc := inventory.NewService(db, events, logger, config.RentalConfig{})
	rentalSvc := rental.NewService(db, c, events, logger, config.RentalConfig{})

	ctx := context.Background()
	admin := inventory.Actor{TraceID: "trace-admin", ID: 99, Name: "Admin"}
	day := func(n int) time.Time {
		return time.Now().Add(time.Duration(n) * 24 * time.Hour).Truncate(time.Second)
	}

	// Admin registers Camera X with one unit.
	rt, items, err := invSvc.CreateResourceType(ctx, admin, "Camera X", "camera", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "001", items[0].Code)

	// Alice asks for three days.
	alice, err := rentalSvc.Create(ctx, rental.CreateParams{
		TraceID: "trace-alice", RequesterID: 1, RequesterName: "Alice",
		ResourceTypeID: rt.ID, Start: day(1), End: day(4), Note: "field shoot",
	})
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, alice.Status)

	// Bob's overlapping request is refused, then forced through.
	_, err = rentalSvc.Create(ctx, rental.CreateParams{
		TraceID: "trace-bob", RequesterID: 2, RequesterName: "Bob",
		ResourceTypeID: rt.ID, Start: day(2), End: day(5),
	})
	var slotTaken *rental.SlotTakenError
	require.ErrorAs(t, err, &slotTaken)

	bob, err := rentalSvc.Create(ctx, rental.CreateParams{
		TraceID: "trace-bob", RequesterID: 2, RequesterName: "Bob",
		ResourceTypeID: rt.ID, Start: day(2), End: day(5), AllowOverlap: true,
	})
	require.NoError(t, err)

	// Approving Alice rejects Bob automatically.
	res, err := rentalSvc.UpdateStatus(ctx, rental.TransitionParams{
		TraceID: "trace-admin", ActorID: admin.ID, ActorName: admin.Name,
		BookingID: alice.ID, To: model.BookingApproved,
	})
	require.NoError(t, err)
	require.Len(t, res.AutoRejected, 1)
	assert.Equal(t, bob.ID, res.AutoRejected[0].ID)

	var bobReloaded model.Booking
	require.NoError(t, db.First(&bobReloaded, bob.ID).Error)
	assert.Equal(t, model.BookingRejected, bobReloaded.Status)

	// Pickup takes the last unit out of circulation.
	_, err = rentalSvc.UpdateStatus(ctx, rental.TransitionParams{
		TraceID: "trace-admin", ActorID: admin.ID, ActorName: admin.Name,
		BookingID: alice.ID, To: model.BookingCheckedOut, Evidence: "photo:pickup-1",
	})
	require.NoError(t, err)

	reloaded, _, err := invSvc.GetResourceType(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.StockCount)
	assert.Equal(t, model.ResourceUnavailable, reloaded.Status)

	// Bob cannot be revived; his booking is terminal.
	_, err = rentalSvc.UpdateStatus(ctx, rental.TransitionParams{
		TraceID: "trace-admin", ActorID: admin.ID, ActorName: admin.Name,
		BookingID: bob.ID, To: model.BookingApproved,
	})
	var illegal *rental.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	// Return restores the inventory.
	res, err = rentalSvc.UpdateStatus(ctx, rental.TransitionParams{
		TraceID: "trace-admin", ActorID: admin.ID, ActorName: admin.Name,
		BookingID: alice.ID, To: model.BookingReturned, Evidence: "photo:return-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BookingReturned, res.Booking.Status)

	reloaded, _, err = invSvc.GetResourceType(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.StockCount)
	assert.Equal(t, model.ResourceAvailable, reloaded.Status)

	// Flush the async trail and check the story it tells.
	events.Stop(context.Background())

	var logged []model.EventLog
	require.NoError(t, db.Order("id ASC").Find(&logged).Error)
	types := make(map[string]int)
	for _, e := range logged {
		types[e.EventType]++
	}
	assert.Equal(t, 1, types[audit.EventResourceCreated])
	assert.Equal(t, 2, types[audit.EventBookingCreated], "Alice's and Bob's requests")
	assert.Equal(t, 1, types[audit.EventBookingRejected])
	assert.GreaterOrEqual(t, types[audit.EventStatusChanged], 3, "approve, checkout, return")
}
