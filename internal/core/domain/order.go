package domain

import "time"

type OrderID int64

type OrderStatus string

// OrderStatusOpen is the only status this service assigns; later transitions belong elsewhere.
const OrderStatusOpen OrderStatus = "in_cart"

// DefaultQuantity is used when a client does not say how many units to add.
const DefaultQuantity = 1

type Order struct {
	ID        OrderID
	Status    OrderStatus
	CreatedAt time.Time
	Lines     []OrderLine
}

type OrderLineKey struct {
	OrderID OrderID
	ModelID ModelID
	SizeID  SizeID
}

// OrderLine holds the cumulative quantity reserved for one (order, model, size).
type OrderLine struct {
	OrderID  OrderID
	ModelID  ModelID
	SizeID   SizeID
	Quantity int
}

// AddItemRequest asks for Quantity units of (ModelID, SizeID). A nil OrderID starts a new order.
type AddItemRequest struct {
	OrderID  *OrderID
	ModelID  ModelID
	SizeID   SizeID
	Quantity int
}

func (r AddItemRequest) StockKey() StockKey {
	return StockKey{ModelID: r.ModelID, SizeID: r.SizeID}
}

func (r AddItemRequest) Validate() error {
	if r.OrderID != nil && *r.OrderID <= 0 {
		return Invalid("order_id must be positive")
	}
	if r.ModelID <= 0 {
		return Invalid("model_id must be positive")
	}
	if r.SizeID <= 0 {
		return Invalid("size_id must be positive")
	}
	if r.Quantity <= 0 {
		return Invalid("quantity must be positive")
	}
	return nil
}

// AddItemResult holds value snapshots of everything AddItem touched.
// Merged reports whether an existing line was incremented rather than created.
type AddItemResult struct {
	Order      Order
	Line       OrderLine
	StockEntry StockEntry
	Merged     bool
}
