package rental

import (
	"errors"

	"github.com/ayamesys/gearbook/model"
	"gorm.io/gorm"
)

// The ledger owns the only mutable shared state in the engine: resource
// stock counts and item statuses. Both operations are guarded updates
// (UPDATE ... WHERE the precondition still holds) so two transactions
// can never both pass a stale check, and both must run inside the same
// transaction as the booking status write that triggered them.

// ReserveOnCheckout flips the targeted item AVAILABLE→RENTED (when the
// target is serialized) and decrements the type's stock count by one,
// marking the type UNAVAILABLE when the count reaches zero.
func ReserveOnCheckout(tx *gorm.DB, target model.Target) error {
	var rt model.ResourceType
	if err := tx.First(&rt, target.ResourceTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return err
	}

	if target.Serialized() {
		res := tx.Model(&model.ResourceItem{}).
			Where("id = ? AND resource_type_id = ? AND status = ?",
				target.ItemID, target.ResourceTypeID, model.ItemAvailable).
			Update("status", model.ItemRented)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var item model.ResourceItem
			if err := tx.First(&item, target.ItemID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return ErrItemUnavailable
		}
	}

	res := tx.Model(&model.ResourceType{}).
		Where("id = ? AND stock_count > 0", target.ResourceTypeID).
		Update("stock_count", gorm.Expr("stock_count - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOutOfStock
	}

	var count int
	if err := tx.Model(&model.ResourceType{}).
		Where("id = ?", target.ResourceTypeID).
		Pluck("stock_count", &count).Error; err != nil {
		return err
	}
	if count == 0 {
		// Only the automatic AVAILABLE→UNAVAILABLE toggle; an
		// administrator-set MAINTENANCE stays as it is.
		if err := tx.Model(&model.ResourceType{}).
			Where("id = ? AND status = ?", target.ResourceTypeID, model.ResourceAvailable).
			Update("status", model.ResourceUnavailable).Error; err != nil {
			return err
		}
	}
	return nil
}

// ReleaseOnReturn undoes ReserveOnCheckout: the item (if any) goes back
// RENTED→AVAILABLE, the stock count is incremented, and an automatic
// UNAVAILABLE flips back to AVAILABLE now that stock exists again.
func ReleaseOnReturn(tx *gorm.DB, target model.Target) error {
	var rt model.ResourceType
	if err := tx.First(&rt, target.ResourceTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return err
	}

	if target.Serialized() {
		res := tx.Model(&model.ResourceItem{}).
			Where("id = ? AND resource_type_id = ? AND status = ?",
				target.ItemID, target.ResourceTypeID, model.ItemRented).
			Update("status", model.ItemAvailable)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrItemNotRented
		}
	}

	if err := tx.Model(&model.ResourceType{}).
		Where("id = ?", target.ResourceTypeID).
		Update("stock_count", gorm.Expr("stock_count + 1")).Error; err != nil {
		return err
	}

	return tx.Model(&model.ResourceType{}).
		Where("id = ? AND status = ?", target.ResourceTypeID, model.ResourceUnavailable).
		Update("status", model.ResourceAvailable).Error
}
