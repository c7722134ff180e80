package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayamesys/gearbook/audit"
	"github.com/ayamesys/gearbook/cache"
	"github.com/ayamesys/gearbook/config"
	"github.com/ayamesys/gearbook/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reasons written by system-initiated transitions.
const (
	ReasonSuperseded   = "superseded by new request"
	ReasonAutoRejected = "superseded by approved overlapping rental"
)

// Service is the booking orchestrator. It is the only component that
// mutates bookings, and it drives the overlap detector, the lifecycle
// table and the resource ledger inside one transaction per operation.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	events audit.Recorder
	logger *zap.Logger
	cfg    config.RentalConfig
}

// NewService creates the booking orchestrator.
func NewService(db *gorm.DB, c cache.Cache, events audit.Recorder, logger *zap.Logger, cfg config.RentalConfig) *Service {
	return &Service{db: db, cache: c, events: events, logger: logger, cfg: cfg}
}

// CreateParams are the inputs for a new booking request.
type CreateParams struct {
	TraceID        string
	RequesterID    int64
	RequesterName  string
	ResourceTypeID int64
	ResourceItemID *int64
	Start          time.Time
	End            time.Time
	Note           string
	// AllowOverlap skips the cross-requester conflict check; the
	// requester's own stale PENDING bookings are superseded regardless.
	AllowOverlap bool
}

// Create validates the request, supersedes the requester's own stale
// overlapping PENDING bookings, and persists a new PENDING booking.
// Overlaps with other requesters' active bookings fail with
// *SlotTakenError unless AllowOverlap is set.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Booking, error) {
	if !p.Start.Before(p.End) {
		return nil, ErrInvalidInterval
	}
	if p.Start.Before(time.Now()) {
		return nil, ErrPastStartDate
	}

	// The overlap check and the insert are one check-then-write; the
	// per-resource lock keeps two concurrent creates from both passing.
	unlock, err := s.lockResource(ctx, p.ResourceTypeID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target := model.TargetFor(p.ResourceTypeID, p.ResourceItemID)
	booking := &model.Booking{
		RequesterID:    p.RequesterID,
		RequesterName:  p.RequesterName,
		ResourceTypeID: p.ResourceTypeID,
		ResourceItemID: p.ResourceItemID,
		StartTime:      p.Start,
		EndTime:        p.End,
		Status:         model.BookingPending,
		RequestNote:    p.Note,
	}
	var superseded []model.Booking

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt model.ResourceType
		if err := tx.First(&rt, p.ResourceTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResourceNotFound
			}
			return err
		}

		if target.Serialized() {
			var item model.ResourceItem
			err := tx.Where("id = ? AND resource_type_id = ?", target.ItemID, target.ResourceTypeID).
				First(&item).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			if err != nil {
				return err
			}
			if item.Status != model.ItemAvailable {
				return ErrItemUnavailable
			}
		}

		// Self-supersession: the new request replaces the requester's
		// own overlapping PENDING requests instead of erroring.
		stale, err := FindConflicts(tx, ConflictQuery{
			Target:      target,
			Start:       p.Start,
			End:         p.End,
			Statuses:    []model.BookingStatus{model.BookingPending},
			RequesterID: p.RequesterID,
		})
		if err != nil {
			return err
		}
		for i := range stale {
			res := tx.Model(&model.Booking{}).
				Where("id = ? AND status = ?", stale[i].ID, model.BookingPending).
				Updates(map[string]interface{}{
					"status":        model.BookingCancelled,
					"cancel_reason": ReasonSuperseded,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				superseded = append(superseded, stale[i])
			}
		}

		if !p.AllowOverlap {
			conflicts, err := FindConflicts(tx, ConflictQuery{
				Target:             target,
				Start:              p.Start,
				End:                p.End,
				ExcludeRequesterID: p.RequesterID,
			})
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return &SlotTakenError{Conflicts: conflicts}
			}
		}

		return tx.Create(booking).Error
	})
	if err != nil {
		return nil, err
	}

	for i := range superseded {
		id := superseded[i].ID
		s.events.Record(audit.Entry{
			TraceID:   p.TraceID,
			ActorID:   p.RequesterID,
			ActorName: p.RequesterName,
			EventType: audit.EventBookingSuperseded,
			BookingID: &id,
			Payload:   map[string]interface{}{"replaced_by": booking.ID, "reason": ReasonSuperseded},
		})
	}
	s.events.Record(audit.Entry{
		TraceID:   p.TraceID,
		ActorID:   p.RequesterID,
		ActorName: p.RequesterName,
		EventType: audit.EventBookingCreated,
		BookingID: &booking.ID,
		Payload: map[string]interface{}{
			"resource_type_id": p.ResourceTypeID,
			"resource_item_id": p.ResourceItemID,
			"start_time":       p.Start,
			"end_time":         p.End,
		},
	})
	s.logger.Info("booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("requester_id", p.RequesterID),
		zap.Int64("resource_type_id", p.ResourceTypeID),
		zap.Int("superseded", len(superseded)))

	return booking, nil
}

// TransitionParams are the inputs for a booking status change.
type TransitionParams struct {
	TraceID   string
	ActorID   int64
	ActorName string
	BookingID int64
	To        model.BookingStatus
	// Reason is persisted as RejectReason or CancelReason when the
	// target status is REJECTED or CANCELLED.
	Reason string
	// Evidence is an opaque pickup/return reference stored on
	// CHECKED_OUT and RETURNED transitions.
	Evidence string
}

// TransitionResult is the outcome of UpdateStatus.
type TransitionResult struct {
	Booking *model.Booking
	// AutoRejected lists competing PENDING bookings rejected as a side
	// effect of a PENDING→APPROVED transition (empty otherwise).
	AutoRejected []model.Booking
}

// UpdateStatus applies one lifecycle transition. The transition check,
// auto-rejection of competitors (on approval) and the ledger mutation
// (on checkout/return) all commit atomically with the status write; any
// failure leaves the booking and the ledger untouched.
func (s *Service) UpdateStatus(ctx context.Context, p TransitionParams) (*TransitionResult, error) {
	result := &TransitionResult{}
	var from model.BookingStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b model.Booking
		if err := tx.First(&b, p.BookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		from = b.Status

		if err := AssertTransition(b.Status, p.To); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": p.To}
		switch {
		case p.To == model.BookingRejected && p.Reason != "":
			updates["reject_reason"] = p.Reason
		case p.To == model.BookingCancelled && p.Reason != "":
			updates["cancel_reason"] = p.Reason
		case p.To == model.BookingCheckedOut && p.Evidence != "":
			updates["pickup_evidence"] = p.Evidence
		case p.To == model.BookingReturned && p.Evidence != "":
			updates["return_evidence"] = p.Evidence
		}

		// Guarded write: a concurrent transition that won the race leaves
		// zero rows here, and the loser reports what it now observes.
		res := tx.Model(&model.Booking{}).
			Where("id = ? AND status = ?", b.ID, b.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current model.Booking
			if err := tx.First(&current, b.ID).Error; err != nil {
				return err
			}
			return &IllegalTransitionError{From: current.Status, To: p.To}
		}

		if from == model.BookingPending && p.To == model.BookingApproved {
			competitors, err := FindConflicts(tx, ConflictQuery{
				Target:           b.Target(),
				Start:            b.StartTime,
				End:              b.EndTime,
				Statuses:         []model.BookingStatus{model.BookingPending},
				ExcludeBookingID: b.ID,
			})
			if err != nil {
				return err
			}
			for i := range competitors {
				res := tx.Model(&model.Booking{}).
					Where("id = ? AND status = ?", competitors[i].ID, model.BookingPending).
					Updates(map[string]interface{}{
						"status":        model.BookingRejected,
						"reject_reason": ReasonAutoRejected,
					})
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					result.AutoRejected = append(result.AutoRejected, competitors[i])
				}
			}
		}

		switch p.To {
		case model.BookingCheckedOut:
			if err := ReserveOnCheckout(tx, b.Target()); err != nil {
				return err
			}
		case model.BookingReturned:
			if err := ReleaseOnReturn(tx, b.Target()); err != nil {
				return err
			}
		}

		var updated model.Booking
		if err := tx.First(&updated, b.ID).Error; err != nil {
			return err
		}
		result.Booking = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	bookingID := result.Booking.ID
	s.events.Record(audit.Entry{
		TraceID:   p.TraceID,
		ActorID:   p.ActorID,
		ActorName: p.ActorName,
		EventType: audit.EventStatusChanged,
		BookingID: &bookingID,
		Payload: map[string]interface{}{
			"from":   from,
			"to":     p.To,
			"reason": p.Reason,
		},
	})
	for i := range result.AutoRejected {
		id := result.AutoRejected[i].ID
		s.events.Record(audit.Entry{
			TraceID:   p.TraceID,
			ActorID:   p.ActorID,
			ActorName: p.ActorName,
			EventType: audit.EventBookingRejected,
			BookingID: &id,
			Payload:   map[string]interface{}{"approved_booking": bookingID, "reason": ReasonAutoRejected},
		})
	}
	s.logger.Info("booking transitioned",
		zap.Int64("booking_id", bookingID),
		zap.String("from", string(from)),
		zap.String("to", string(p.To)),
		zap.Int("auto_rejected", len(result.AutoRejected)))

	return result, nil
}

// ListByRequester returns a requester's bookings, newest first.
func (s *Service) ListByRequester(ctx context.Context, requesterID int64) ([]model.Booking, error) {
	var out []model.Booking
	err := s.db.WithContext(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListByResource returns all bookings against a resource type, newest first.
func (s *Service) ListByResource(ctx context.Context, resourceTypeID int64) ([]model.Booking, error) {
	var out []model.Booking
	err := s.db.WithContext(ctx).
		Where("resource_type_id = ?", resourceTypeID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// Conflicts runs the overlap detector outside any transaction.
func (s *Service) Conflicts(ctx context.Context, q ConflictQuery) ([]model.Booking, error) {
	return FindConflicts(s.db.WithContext(ctx), q)
}

func (s *Service) lockResource(ctx context.Context, resourceTypeID int64) (func(), error) {
	key := fmt.Sprintf("lock:resource:%d", resourceTypeID)
	ttl := s.cfg.CreateLockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	retries := s.cfg.CreateLockRetries
	if retries <= 0 {
		retries = 50
	}
	backoff := s.cfg.CreateLockBackoff
	if backoff <= 0 {
		backoff = 20 * time.Millisecond
	}

	for i := 0; i < retries; i++ {
		ok, err := s.cache.SetNX(ctx, key, "1", ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { _ = s.cache.Del(context.Background(), key) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, ErrResourceBusy
}
