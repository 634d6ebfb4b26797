package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rl1809/obesho/internal/core/domain"
)

type inventoryRepository struct {
	db *gorm.DB
}

// DecrementStock is a single conditional UPDATE; the row lock it takes is held
// until the enclosing transaction ends, so concurrent reservations of the same
// entry are applied one after another against the committed quantity.
func (r *inventoryRepository) DecrementStock(ctx context.Context, key domain.StockKey, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&stockEntryRecord{}).
		Where("model_id = ? AND size_id = ? AND quantity >= ?", int64(key.ModelID), int64(key.SizeID), quantity).
		Update("quantity", gorm.Expr("quantity - ?", quantity))
	if result.Error != nil {
		return false, classify(fmt.Errorf("update stock entry: %w", result.Error))
	}
	return result.RowsAffected == 1, nil
}

func (r *inventoryRepository) GetStockEntry(ctx context.Context, key domain.StockKey) (*domain.StockEntry, error) {
	var rec stockEntryRecord
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND size_id = ?", int64(key.ModelID), int64(key.SizeID)).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query stock entry: %w", err))
	}

	entry := rec.toDomain()
	return &entry, nil
}
