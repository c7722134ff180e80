package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ayamesys/gearbook/audit"
	"github.com/ayamesys/gearbook/config"
	"github.com/ayamesys/gearbook/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrResourceNotFound is returned when the resource type does not exist.
	ErrResourceNotFound = errors.New("inventory: resource type not found")
	// ErrInvalidCount is returned for a non-positive item count.
	ErrInvalidCount = errors.New("inventory: count must be positive")
)

// Actor identifies who performs an administrative change, for the event
// trail.
type Actor struct {
	TraceID string
	ID      int64
	Name    string
}

// Service administers resource types and their serialized items. Stock
// only ever grows through this service; reclaiming and lending flow
// through the booking engine's ledger instead.
type Service struct {
	db        *gorm.DB
	events    audit.Recorder
	logger    *zap.Logger
	codeWidth int
}

// NewService creates the inventory administration service.
func NewService(db *gorm.DB, events audit.Recorder, logger *zap.Logger, cfg config.RentalConfig) *Service {
	width := cfg.ItemCodeWidth
	if width <= 0 {
		width = 3
	}
	return &Service{db: db, events: events, logger: logger, codeWidth: width}
}

// CreateResourceType registers a new equipment type with count serialized
// items coded "001".."NNN". A zero count is allowed and leaves the type
// UNAVAILABLE until stock is added.
func (s *Service) CreateResourceType(ctx context.Context, actor Actor, name, category string, count int) (*model.ResourceType, []model.ResourceItem, error) {
	if count < 0 {
		return nil, nil, ErrInvalidCount
	}

	status := model.ResourceAvailable
	if count == 0 {
		status = model.ResourceUnavailable
	}
	rt := &model.ResourceType{
		Name:       name,
		Category:   category,
		StockCount: count,
		Status:     status,
	}

	var items []model.ResourceItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rt).Error; err != nil {
			return err
		}
		var err error
		items, err = s.spawnItems(tx, rt.ID, 0, count)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.events.Record(audit.Entry{
		TraceID:   actor.TraceID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		EventType: audit.EventResourceCreated,
		Payload: map[string]interface{}{
			"resource_type_id": rt.ID,
			"name":             name,
			"stock_count":      count,
		},
	})
	s.logger.Info("resource type created",
		zap.Int64("resource_type_id", rt.ID),
		zap.String("name", name),
		zap.Int("stock_count", count))

	return rt, items, nil
}

// AddStock appends count new items, continuing the code sequence, and
// bumps the stock count. An UNAVAILABLE type flips back to AVAILABLE;
// MAINTENANCE stays until an administrator clears it.
func (s *Service) AddStock(ctx context.Context, actor Actor, resourceTypeID int64, count int) ([]model.ResourceItem, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	var items []model.ResourceItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt model.ResourceType
		if err := tx.First(&rt, resourceTypeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResourceNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&model.ResourceItem{}).
			Where("resource_type_id = ?", resourceTypeID).
			Count(&existing).Error; err != nil {
			return err
		}

		var err error
		items, err = s.spawnItems(tx, resourceTypeID, int(existing), count)
		if err != nil {
			return err
		}

		if err := tx.Model(&rt).
			Update("stock_count", gorm.Expr("stock_count + ?", count)).Error; err != nil {
			return err
		}
		return tx.Model(&model.ResourceType{}).
			Where("id = ? AND status = ?", resourceTypeID, model.ResourceUnavailable).
			Update("status", model.ResourceAvailable).Error
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(audit.Entry{
		TraceID:   actor.TraceID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		EventType: audit.EventStockAdded,
		Payload: map[string]interface{}{
			"resource_type_id": resourceTypeID,
			"added":            count,
		},
	})
	return items, nil
}

// SetMaintenance takes the type out of circulation until cleared.
func (s *Service) SetMaintenance(ctx context.Context, actor Actor, resourceTypeID int64) error {
	return s.setStatus(ctx, actor, resourceTypeID, model.ResourceMaintenance)
}

// ClearMaintenance recomputes the automatic status from current stock.
func (s *Service) ClearMaintenance(ctx context.Context, actor Actor, resourceTypeID int64) error {
	var rt model.ResourceType
	if err := s.db.WithContext(ctx).First(&rt, resourceTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return err
	}
	status := model.ResourceAvailable
	if rt.StockCount == 0 {
		status = model.ResourceUnavailable
	}
	return s.setStatus(ctx, actor, resourceTypeID, status)
}

// GetResourceType returns the type and its items.
func (s *Service) GetResourceType(ctx context.Context, resourceTypeID int64) (*model.ResourceType, []model.ResourceItem, error) {
	var rt model.ResourceType
	if err := s.db.WithContext(ctx).First(&rt, resourceTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrResourceNotFound
		}
		return nil, nil, err
	}
	var items []model.ResourceItem
	if err := s.db.WithContext(ctx).
		Where("resource_type_id = ?", resourceTypeID).
		Order("code ASC").
		Find(&items).Error; err != nil {
		return nil, nil, err
	}
	return &rt, items, nil
}

// ListResourceTypes returns all resource types ordered by name.
func (s *Service) ListResourceTypes(ctx context.Context) ([]model.ResourceType, error) {
	var out []model.ResourceType
	err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (s *Service) setStatus(ctx context.Context, actor Actor, resourceTypeID int64, status model.ResourceStatus) error {
	res := s.db.WithContext(ctx).Model(&model.ResourceType{}).
		Where("id = ?", resourceTypeID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrResourceNotFound
	}
	s.events.Record(audit.Entry{
		TraceID:   actor.TraceID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		EventType: audit.EventResourceStatusSet,
		Payload: map[string]interface{}{
			"resource_type_id": resourceTypeID,
			"status":           status,
		},
	})
	return nil
}

// spawnItems creates count items with zero-padded codes continuing the
// sequence after offset existing items.
func (s *Service) spawnItems(tx *gorm.DB, resourceTypeID int64, offset, count int) ([]model.ResourceItem, error) {
	if count == 0 {
		return nil, nil
	}
	items := make([]model.ResourceItem, count)
	for i := 0; i < count; i++ {
		items[i] = model.ResourceItem{
			ResourceTypeID: resourceTypeID,
			Code:           fmt.Sprintf("%0*d", s.codeWidth, offset+i+1),
			Status:         model.ItemAvailable,
		}
	}
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
