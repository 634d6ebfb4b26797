package service

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/port"
)

// memStore runs transactions one at a time against a copy of its state and
// swaps the copy in on success, which is enough isolation for the service rules.
type memStore struct {
	mu sync.Mutex

	stock  map[domain.StockKey]int
	orders map[domain.OrderID]domain.Order
	lines  map[domain.OrderLineKey]int
	nextID domain.OrderID

	// conflicts makes the next n transactions fail as if the database had detected a deadlock
	conflicts int
	txCount   int
}

func newMemStore() *memStore {
	return &memStore{
		stock:  make(map[domain.StockKey]int),
		orders: make(map[domain.OrderID]domain.Order),
		lines:  make(map[domain.OrderLineKey]int),
		nextID: 1,
	}
}

func (s *memStore) setStock(modelID domain.ModelID, sizeID domain.SizeID, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[domain.StockKey{ModelID: modelID, SizeID: sizeID}] = qty
}

func (s *memStore) stockOf(modelID domain.ModelID, sizeID domain.SizeID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[domain.StockKey{ModelID: modelID, SizeID: sizeID}]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txCount++
	if s.conflicts > 0 {
		s.conflicts--
		return domain.Conflict(errors.New("deadlock found when trying to get lock"))
	}

	tx := &memTx{
		stock:  maps.Clone(s.stock),
		orders: maps.Clone(s.orders),
		lines:  maps.Clone(s.lines),
		nextID: s.nextID,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.stock, s.orders, s.lines, s.nextID = tx.stock, tx.orders, tx.lines, tx.nextID
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	for key, qty := range s.lines {
		if key.OrderID == id {
			order.Lines = append(order.Lines, domain.OrderLine{OrderID: id, ModelID: key.ModelID, SizeID: key.SizeID, Quantity: qty})
		}
	}
	sort.Slice(order.Lines, func(i, j int) bool {
		if order.Lines[i].ModelID != order.Lines[j].ModelID {
			return order.Lines[i].ModelID < order.Lines[j].ModelID
		}
		return order.Lines[i].SizeID < order.Lines[j].SizeID
	})
	return &order, nil
}

func (s *memStore) ListModels(ctx context.Context) ([]domain.ProductModel, error) {
	return nil, nil
}

func (s *memStore) ListSizes(ctx context.Context) ([]domain.Size, error) {
	return nil, nil
}

type memTx struct {
	stock  map[domain.StockKey]int
	orders map[domain.OrderID]domain.Order
	lines  map[domain.OrderLineKey]int
	nextID domain.OrderID
}

func (t *memTx) Inventory() port.InventoryRepository { return t }

func (t *memTx) Orders() port.OrderRepository { return t }

func (t *memTx) DecrementStock(ctx context.Context, key domain.StockKey, quantity int) (bool, error) {
	qty, ok := t.stock[key]
	if !ok || qty < quantity {
		return false, nil
	}
	t.stock[key] = qty - quantity
	return true, nil
}

func (t *memTx) GetStockEntry(ctx context.Context, key domain.StockKey) (*domain.StockEntry, error) {
	qty, ok := t.stock[key]
	if !ok {
		return nil, nil
	}
	return &domain.StockEntry{ModelID: key.ModelID, SizeID: key.SizeID, Quantity: qty}, nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.ID = t.nextID
	t.nextID++
	t.orders[order.ID] = *order
	return nil
}

func (t *memTx) LockOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, ok := t.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (t *memTx) GetOrderLine(ctx context.Context, key domain.OrderLineKey) (*domain.OrderLine, error) {
	qty, ok := t.lines[key]
	if !ok {
		return nil, nil
	}
	return &domain.OrderLine{OrderID: key.OrderID, ModelID: key.ModelID, SizeID: key.SizeID, Quantity: qty}, nil
}

func (t *memTx) AddToOrderLine(ctx context.Context, key domain.OrderLineKey, quantity int) (*domain.OrderLine, error) {
	t.lines[key] += quantity
	return &domain.OrderLine{OrderID: key.OrderID, ModelID: key.ModelID, SizeID: key.SizeID, Quantity: t.lines[key]}, nil
}

// cancellingStore cancels the caller's context while a transaction runs. Before the
// transaction it behaves like a client that went away, after it like one that left
// just as the commit finished.
type cancellingStore struct {
	*memStore
	cancel      context.CancelFunc
	afterCommit bool
}

func (s *cancellingStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	if !s.afterCommit {
		s.cancel()
		return ctx.Err()
	}
	err := s.memStore.WithinTransaction(ctx, fn)
	s.cancel()
	return err
}

// mockCacheRepo mirrors the Redis adapter's idempotency semantics in memory,
// including refusing writes on a done context.
type mockCacheRepo struct {
	mu      sync.Mutex
	claimed map[string]bool
	results map[string][]byte
	err     error
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		claimed: make(map[string]bool),
		results: make(map[string][]byte),
	}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *mockCacheRepo) ReleaseIdempotency(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, key)
	delete(m.results, key)
	return nil
}

func (m *mockCacheRepo) StoreResult(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = payload
	return nil
}

func (m *mockCacheRepo) GetResult(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[key], nil
}
