package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rl1809/obesho/internal/core/domain"
)

type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	db := r.db.WithContext(ctx)

	rec := orderRecord{
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}
	if err := db.Create(&rec).Error; err != nil {
		return classify(fmt.Errorf("insert order: %w", err))
	}

	history := orderStatusHistoryRecord{
		OrderID:   rec.ID,
		Status:    rec.Status,
		ChangedAt: rec.CreatedAt,
	}
	if err := db.Create(&history).Error; err != nil {
		return classify(fmt.Errorf("insert order status history: %w", err))
	}

	order.ID = domain.OrderID(rec.ID)
	return nil
}

// LockOrder reads the order FOR UPDATE (a no-op on SQLite, where the write lock is database wide).
func (r *orderRepository) LockOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&rec, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("lock order: %w", err))
	}

	order := rec.toDomain()
	return &order, nil
}

func (r *orderRepository) GetOrderLine(ctx context.Context, key domain.OrderLineKey) (*domain.OrderLine, error) {
	var rec orderLineRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND model_id = ? AND size_id = ?", int64(key.OrderID), int64(key.ModelID), int64(key.SizeID)).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query order line: %w", err))
	}

	line := rec.toDomain()
	return &line, nil
}

// AddToOrderLine upserts on the (order, model, size) primary key, so a line is never duplicated.
func (r *orderRepository) AddToOrderLine(ctx context.Context, key domain.OrderLineKey, quantity int) (*domain.OrderLine, error) {
	db := r.db.WithContext(ctx)

	rec := orderLineRecord{
		OrderID:  int64(key.OrderID),
		ModelID:  int64(key.ModelID),
		SizeID:   int64(key.SizeID),
		Quantity: quantity,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "model_id"}, {Name: "size_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", quantity),
		}),
	}).Create(&rec).Error
	if err != nil {
		return nil, classify(fmt.Errorf("upsert order line: %w", err))
	}

	line, err := r.GetOrderLine(ctx, key)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.Persistence(fmt.Errorf("order line %d/%d/%d missing after upsert", key.OrderID, key.ModelID, key.SizeID))
	}
	return line, nil
}
