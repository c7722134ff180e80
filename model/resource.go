package model

import "time"

// ResourceStatus is the lifecycle status of a resource type.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "AVAILABLE"
	ResourceMaintenance ResourceStatus = "MAINTENANCE"
	ResourceUnavailable ResourceStatus = "UNAVAILABLE"
)

// ResourceType is an equipment category with an aggregate stock count.
// StockCount mirrors the number of currently lendable serialized items;
// the UNAVAILABLE status toggles automatically with the count, while
// MAINTENANCE is set and cleared only by an administrator.
type ResourceType struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string         `gorm:"size:120;not null" json:"name"`
	Category   string         `gorm:"size:64;index:idx_resource_category" json:"category"`
	StockCount int            `gorm:"not null;default:0" json:"stock_count"`
	Status     ResourceStatus `gorm:"size:16;not null;default:'AVAILABLE'" json:"status"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// ItemStatus is the lifecycle status of one serialized unit.
type ItemStatus string

const (
	ItemAvailable   ItemStatus = "AVAILABLE"
	ItemRented      ItemStatus = "RENTED"
	ItemUnavailable ItemStatus = "UNAVAILABLE"
)

// ResourceItem is one serialized, individually trackable unit of a
// resource type. Code is a zero-padded sequence unique within the type.
type ResourceItem struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceTypeID int64      `gorm:"not null;index:idx_item_type;uniqueIndex:uniq_item_code" json:"resource_type_id"`
	Code           string     `gorm:"size:16;not null;uniqueIndex:uniq_item_code" json:"code"`
	Status         ItemStatus `gorm:"size:16;not null;default:'AVAILABLE'" json:"status"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
