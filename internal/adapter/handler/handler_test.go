package handler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/rl1809/obesho/internal/adapter/storage"
	"github.com/rl1809/obesho/internal/core/service"
)

type testStack struct {
	store   *storage.GormAdapter
	orders  *service.OrderComposer
	catalog *service.CatalogService
	cache   *memCache
}

// newTestStack runs the services over a seeded SQLite file with an in-memory idempotency cache.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	path := filepath.Join(t.TempDir(), "obesho.sqlite")
	db, err := storage.Open(storage.Options{Driver: storage.DriverSQLite, DSN: path, LogLevel: logger.Silent}, zap.NewNop())
	require.NoError(t, err)
	store := storage.NewGormAdapter(db)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Seed(ctx, storage.DefaultFixture(), false))

	cache := newMemCache()
	return &testStack{
		store:   store,
		orders:  service.NewOrderComposer(store, service.NewInventoryLedger(store), service.WithIdempotency(cache)),
		catalog: service.NewCatalogService(store),
		cache:   cache,
	}
}

type memCache struct {
	mu      sync.Mutex
	claims  map[string]bool
	results map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{claims: map[string]bool{}, results: map[string][]byte{}}
}

func (m *memCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

func (m *memCache) ReleaseIdempotency(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, key)
	delete(m.results, key)
	return nil
}

func (m *memCache) StoreResult(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = payload
	return nil
}

func (m *memCache) GetResult(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[key], nil
}
