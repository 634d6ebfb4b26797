package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/port"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Options struct {
	Driver string
	// DSN is a go-sql-driver DSN for MySQL or a file path for SQLite.
	DSN           string
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

// Open connects with the configured dialect. SQLite gets a single connection so
// writers queue in the pool instead of failing with SQLITE_BUSY.
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	if opts.SlowThreshold == 0 {
		opts.SlowThreshold = 200 * time.Millisecond
	}
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             opts.SlowThreshold,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if opts.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + sqlitePragmas
}

type GormAdapter struct {
	db *gorm.DB
}

func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db}
}

func (a *GormAdapter) Migrate(ctx context.Context) error {
	if err := a.db.WithContext(ctx).AutoMigrate(allRecords...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (a *GormAdapter) Ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *GormAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *GormAdapter) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx port.Tx) error) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTx{db: tx})
	})
	return classify(err)
}

func (a *GormAdapter) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var rec orderRecord
	err := a.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("model_id, size_id")
		}).
		Take(&rec, int64(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query order: %w", err))
	}
	order := rec.toDomain()
	return &order, nil
}

func (a *GormAdapter) ListModels(ctx context.Context) ([]domain.ProductModel, error) {
	var recs []modelRecord
	err := a.db.WithContext(ctx).
		Preload("StockEntries", func(db *gorm.DB) *gorm.DB {
			return db.Order("size_id")
		}).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, classify(fmt.Errorf("query models: %w", err))
	}

	models := make([]domain.ProductModel, 0, len(recs))
	for _, rec := range recs {
		models = append(models, rec.toDomain())
	}
	return models, nil
}

func (a *GormAdapter) ListSizes(ctx context.Context) ([]domain.Size, error) {
	var recs []sizeRecord
	if err := a.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, classify(fmt.Errorf("query sizes: %w", err))
	}

	sizes := make([]domain.Size, 0, len(recs))
	for _, rec := range recs {
		sizes = append(sizes, domain.Size{ID: domain.SizeID(rec.ID)})
	}
	return sizes, nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) Inventory() port.InventoryRepository {
	return &inventoryRepository{db: t.db}
}

func (t *gormTx) Orders() port.OrderRepository {
	return &orderRepository{db: t.db}
}
