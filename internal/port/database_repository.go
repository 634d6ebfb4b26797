package port

import (
	"context"

	"github.com/rl1809/obesho/internal/core/domain"
)

type InventoryRepository interface {
	// DecrementStock subtracts quantity only if at least that much is available.
	// It returns false, with no change applied, when the entry is missing or short.
	DecrementStock(ctx context.Context, key domain.StockKey, quantity int) (bool, error)

	// GetStockEntry returns nil when the pair is not stocked at all.
	GetStockEntry(ctx context.Context, key domain.StockKey) (*domain.StockEntry, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order and assigns its ID.
	CreateOrder(ctx context.Context, order *domain.Order) error

	// LockOrder returns the order and holds it for the rest of the transaction, or nil if it does not exist.
	LockOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error)

	GetOrderLine(ctx context.Context, key domain.OrderLineKey) (*domain.OrderLine, error)

	// AddToOrderLine creates the line with quantity, or adds quantity to the existing line.
	AddToOrderLine(ctx context.Context, key domain.OrderLineKey, quantity int) (*domain.OrderLine, error)
}

// Tx is a set of repositories bound to one open transaction.
type Tx interface {
	Inventory() InventoryRepository
	Orders() OrderRepository
}

type CatalogRepository interface {
	ListModels(ctx context.Context) ([]domain.ProductModel, error)
	ListSizes(ctx context.Context) ([]domain.Size, error)
}

type DatabaseRepository interface {
	CatalogRepository

	// WithinTransaction commits when fn returns nil and rolls everything back otherwise.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// GetOrder loads an order with its lines, or nil if it does not exist.
	GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error)
}
