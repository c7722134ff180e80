package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayamesys/gearbook/inventory"
	"github.com/gin-gonic/gin"

	mw "github.com/ayamesys/gearbook/middleware"
)

// ResourceHandler handles resource administration endpoints.
type ResourceHandler struct {
	inv *inventory.Service
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(inv *inventory.Service) *ResourceHandler {
	return &ResourceHandler{inv: inv}
}

func actorFrom(c *gin.Context) inventory.Actor {
	return inventory.Actor{
		TraceID: mw.GetTraceID(c),
		ID:      mw.GetActorID(c),
		Name:    mw.GetActorName(c),
	}
}

type createResourceRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Create registers a new resource type with an initial item count.
// POST /api/resources
func (h *ResourceHandler) Create(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rt, items, err := h.inv.CreateResourceType(c.Request.Context(), actorFrom(c), req.Name, req.Category, req.Count)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"resource": rt, "items": items})
}

type addStockRequest struct {
	Count int `json:"count" binding:"required"`
}

// AddStock appends serialized items to an existing type.
// POST /api/resources/:id/stock
func (h *ResourceHandler) AddStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.inv.AddStock(c.Request.Context(), actorFrom(c), id, req.Count)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type setStatusRequest struct {
	Maintenance *bool `json:"maintenance" binding:"required"`
}

// SetStatus flips the administrator-controlled maintenance flag.
// PUT /api/resources/:id/status
func (h *ResourceHandler) SetStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if *req.Maintenance {
		err = h.inv.SetMaintenance(c.Request.Context(), actorFrom(c), id)
	} else {
		err = h.inv.ClearMaintenance(c.Request.Context(), actorFrom(c), id)
	}
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// List returns all resource types.
// GET /api/resources
func (h *ResourceHandler) List(c *gin.Context) {
	types, err := h.inv.ListResourceTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": types})
}

// Detail returns one resource type with its items.
// GET /api/resources/:id
func (h *ResourceHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rt, items, err := h.inv.GetResourceType(c.Request.Context(), id)
	if err != nil {
		writeInventoryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": rt, "items": items})
}

func writeInventoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, inventory.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource type not found"})
	case errors.Is(err, inventory.ErrInvalidCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}
