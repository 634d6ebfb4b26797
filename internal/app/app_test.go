package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/rl1809/obesho/internal/adapter/storage"
	"github.com/rl1809/obesho/internal/config"
	"github.com/rl1809/obesho/internal/core/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "test",
		HTTPAddr:        "127.0.0.1:0",
		GRPCAddr:        "127.0.0.1:0",
		DBDriver:        config.DriverSQLite,
		SQLitePath:      filepath.Join(t.TempDir(), "obesho.sqlite"),
		GormLog:         "off",
		IdempotencyTTL:  time.Hour,
		ConflictRetries: 2,
		ShutdownTimeout: time.Second,
	}
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("off"))
	assert.Equal(t, logger.Silent, gormLogLevel("SILENT"))
	assert.Equal(t, logger.Error, gormLogLevel("error"))
	assert.Equal(t, logger.Info, gormLogLevel("info"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}

func TestNewContainer_ServesOrders(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	// unreachable redis disables idempotency instead of failing startup
	cfg.RedisAddr = "127.0.0.1:1"

	c, err := NewContainer(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	require.NoError(t, c.Store().Migrate(ctx))
	require.NoError(t, c.Store().Seed(ctx, storage.DefaultFixture(), false))

	res, err := c.Orders().AddItemOnce(ctx, "ignored-without-cache", domain.AddItemRequest{ModelID: 1, SizeID: 35, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.StockEntry.Quantity)

	catalog, err := c.Catalog().Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, catalog.Models, 10)
}

func TestNewStoreContainer_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "oracle"

	_, err := NewStoreContainer(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(c).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
