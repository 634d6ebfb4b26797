package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/port"
)

// InventoryLedger is the only writer of stock entries.
type InventoryLedger struct {
	store  port.DatabaseRepository
	tracer trace.Tracer
}

func NewInventoryLedger(store port.DatabaseRepository) *InventoryLedger {
	return &InventoryLedger{
		store:  store,
		tracer: newTracer(),
	}
}

// Reserve takes quantity units from the entry in a transaction of its own.
func (l *InventoryLedger) Reserve(ctx context.Context, key domain.StockKey, quantity int) (domain.CommittedReservation, error) {
	var res domain.CommittedReservation
	err := l.store.WithinTransaction(ctx, func(ctx context.Context, tx port.Tx) error {
		var err error
		res, err = l.ReserveIn(ctx, tx, key, quantity)
		return err
	})
	if err != nil {
		return domain.CommittedReservation{}, domain.Persistence(err)
	}
	return res, nil
}

// ReserveIn stages the decrement in tx. Nothing is durable until the caller commits.
func (l *InventoryLedger) ReserveIn(ctx context.Context, tx port.Tx, key domain.StockKey, quantity int) (res domain.CommittedReservation, err error) {
	ctx, span := l.tracer.Start(ctx, "inventory.reserve", trace.WithAttributes(stockAttributes(key, quantity)...))
	defer func() { endSpan(span, err) }()

	if quantity <= 0 {
		return res, domain.Invalid("quantity must be positive")
	}

	inv := tx.Inventory()
	ok, err := inv.DecrementStock(ctx, key, quantity)
	if err != nil {
		return res, domain.Persistence(fmt.Errorf("decrement stock: %w", err))
	}

	entry, err := inv.GetStockEntry(ctx, key)
	if err != nil {
		return res, domain.Persistence(fmt.Errorf("read stock entry: %w", err))
	}
	if entry == nil {
		return res, domain.StockEntryNotFound(key)
	}
	if !ok {
		return res, domain.InsufficientStock(key, quantity, entry.Quantity)
	}

	return domain.CommittedReservation{Entry: *entry, Reserved: quantity}, nil
}

func (l *InventoryLedger) StockEntry(ctx context.Context, key domain.StockKey) (domain.StockEntry, error) {
	var entry *domain.StockEntry
	err := l.store.WithinTransaction(ctx, func(ctx context.Context, tx port.Tx) error {
		var err error
		entry, err = tx.Inventory().GetStockEntry(ctx, key)
		return err
	})
	if err != nil {
		return domain.StockEntry{}, domain.Persistence(err)
	}
	if entry == nil {
		return domain.StockEntry{}, domain.StockEntryNotFound(key)
	}
	return *entry, nil
}
