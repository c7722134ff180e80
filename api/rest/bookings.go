package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ayamesys/gearbook/model"
	"github.com/ayamesys/gearbook/rental"
	"github.com/gin-gonic/gin"

	mw "github.com/ayamesys/gearbook/middleware"
)

// BookingHandler handles booking endpoints.
type BookingHandler struct {
	svc *rental.Service
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(svc *rental.Service) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
	ResourceTypeID int64     `json:"resource_type_id" binding:"required"`
	ResourceItemID *int64    `json:"resource_item_id"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
	Note           string    `json:"note"`
	AllowOverlap   bool      `json:"allow_overlap"`
}

// Create submits a new booking request for the acting user.
// POST /api/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.svc.Create(c.Request.Context(), rental.CreateParams{
		TraceID:        mw.GetTraceID(c),
		RequesterID:    mw.GetActorID(c),
		RequesterName:  mw.GetActorName(c),
		ResourceTypeID: req.ResourceTypeID,
		ResourceItemID: req.ResourceItemID,
		Start:          req.StartTime,
		End:            req.EndTime,
		Note:           req.Note,
		AllowOverlap:   req.AllowOverlap,
	})
	if err != nil {
		writeRentalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

type transitionRequest struct {
	Status   model.BookingStatus `json:"status" binding:"required"`
	Reason   string              `json:"reason"`
	Evidence string              `json:"evidence"`
}

// UpdateStatus applies a lifecycle transition to a booking.
// PUT /api/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), rental.TransitionParams{
		TraceID:   mw.GetTraceID(c),
		ActorID:   mw.GetActorID(c),
		ActorName: mw.GetActorName(c),
		BookingID: id,
		To:        req.Status,
		Reason:    req.Reason,
		Evidence:  req.Evidence,
	})
	if err != nil {
		writeRentalError(c, err)
		return
	}

	rejectedIDs := make([]int64, 0, len(result.AutoRejected))
	rejectedRequesters := make([]int64, 0, len(result.AutoRejected))
	for _, b := range result.AutoRejected {
		rejectedIDs = append(rejectedIDs, b.ID)
		rejectedRequesters = append(rejectedRequesters, b.RequesterID)
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":                  result.Booking,
		"auto_rejected_ids":        rejectedIDs,
		"auto_rejected_requesters": rejectedRequesters,
	})
}

// List returns bookings filtered by resource type or requester; with no
// filter it returns the acting user's own bookings.
// GET /api/bookings
func (h *BookingHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if raw := c.Query("resource_type_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_type_id"})
			return
		}
		bookings, err := h.svc.ListByResource(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
		return
	}

	requesterID := mw.GetActorID(c)
	if raw := c.Query("requester_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid requester_id"})
			return
		}
		requesterID = id
	}
	bookings, err := h.svc.ListByRequester(ctx, requesterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// Conflicts runs the overlap detector for a resource and interval.
// GET /api/bookings/conflicts?resource_type_id=&resource_item_id=&start=&end=
func (h *BookingHandler) Conflicts(c *gin.Context) {
	typeID, err := strconv.ParseInt(c.Query("resource_type_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_type_id"})
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
		return
	}

	q := rental.ConflictQuery{
		Target: model.Target{ResourceTypeID: typeID},
		Start:  start,
		End:    end,
	}
	if raw := c.Query("resource_item_id"); raw != "" {
		itemID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid resource_item_id"})
			return
		}
		q.Target.ItemID = itemID
	}

	conflicts, err := h.svc.Conflicts(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": conflicts})
}

// writeRentalError maps booking engine errors onto HTTP statuses:
// caller mistakes are 400, state conflicts are 409 with structured
// detail so the client can offer a "proceed anyway" flow.
func writeRentalError(c *gin.Context, err error) {
	var slotTaken *rental.SlotTakenError
	var illegal *rental.IllegalTransitionError

	switch {
	case errors.Is(err, rental.ErrInvalidInterval),
		errors.Is(err, rental.ErrPastStartDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rental.ErrResourceNotFound),
		errors.Is(err, rental.ErrItemNotFound),
		errors.Is(err, rental.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &slotTaken):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "requested interval overlaps existing bookings",
			"conflicts": slotTaken.Conflicts,
		})
	case errors.As(err, &illegal):
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"from":  illegal.From,
			"to":    illegal.To,
		})
	case errors.Is(err, rental.ErrItemUnavailable),
		errors.Is(err, rental.ErrItemNotRented),
		errors.Is(err, rental.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, rental.ErrResourceBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
