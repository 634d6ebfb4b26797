package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

const (
	idempotencyKeyPrefix   = "orderitem:"
	defaultConflictRetries = 2
	defaultRetryInterval   = 20 * time.Millisecond

	// bookkeeping after AddItem must outlive a cancelled request
	cacheWriteTimeout = 2 * time.Second
)

// OrderComposer owns orders and order lines. Stock is changed only through the ledger,
// inside the same transaction as the line update.
type OrderComposer struct {
	store  port.DatabaseRepository
	ledger *InventoryLedger
	cache  port.CacheRepository
	log    *zap.Logger
	tracer trace.Tracer

	conflictRetries uint64
	retryInterval   time.Duration
}

type Option func(*OrderComposer)

func WithLogger(log *zap.Logger) Option {
	return func(c *OrderComposer) {
		c.log = log
	}
}

// WithIdempotency enables AddItemOnce replay through cache.
func WithIdempotency(cache port.CacheRepository) Option {
	return func(c *OrderComposer) {
		c.cache = cache
	}
}

// WithConflictRetries sets how many times a conflicting AddItem is re-run. Zero disables retries.
func WithConflictRetries(n int, interval time.Duration) Option {
	return func(c *OrderComposer) {
		if n < 0 {
			n = 0
		}
		c.conflictRetries = uint64(n)
		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

func NewOrderComposer(store port.DatabaseRepository, ledger *InventoryLedger, opts ...Option) *OrderComposer {
	c := &OrderComposer{
		store:           store,
		ledger:          ledger,
		log:             zap.NewNop(),
		tracer:          newTracer(),
		conflictRetries: defaultConflictRetries,
		retryInterval:   defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveOrGetOrder creates a new open order when id is nil, otherwise locks the existing one.
func (c *OrderComposer) ResolveOrGetOrder(ctx context.Context, tx port.Tx, id *domain.OrderID) (*domain.Order, error) {
	if id == nil {
		order := &domain.Order{
			Status:    domain.OrderStatusOpen,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Orders().CreateOrder(ctx, order); err != nil {
			return nil, domain.Persistence(fmt.Errorf("create order: %w", err))
		}
		return order, nil
	}

	order, err := tx.Orders().LockOrder(ctx, *id)
	if err != nil {
		return nil, domain.Persistence(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return nil, domain.OrderNotFound(*id)
	}
	return order, nil
}

// AddItem reserves stock and merges it into the order as one transaction.
// Conflicts caused by concurrent writers re-run the whole unit.
func (c *OrderComposer) AddItem(ctx context.Context, req domain.AddItemRequest) (result domain.AddItemResult, err error) {
	if err := req.Validate(); err != nil {
		return domain.AddItemResult{}, err
	}

	ctx, span := c.tracer.Start(ctx, "order.add_item",
		trace.WithAttributes(stockAttributes(req.StockKey(), req.Quantity)...))
	defer func() { endSpan(span, err) }()

	attempts := 0
	op := func() error {
		attempts++
		err := c.store.WithinTransaction(ctx, func(ctx context.Context, tx port.Tx) error {
			var err error
			result, err = c.addItem(ctx, tx, req)
			return err
		})
		err = domain.Persistence(err)
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.conflictRetries), ctx))
	err = domain.Persistence(err)
	span.SetAttributes(attribute.Int("order.attempts", attempts))

	c.logAddItem(req, result, attempts, err)
	if err != nil {
		return domain.AddItemResult{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(result.Order.ID)))
	return result, nil
}

func (c *OrderComposer) addItem(ctx context.Context, tx port.Tx, req domain.AddItemRequest) (domain.AddItemResult, error) {
	reservation, err := c.ledger.ReserveIn(ctx, tx, req.StockKey(), req.Quantity)
	if err != nil {
		return domain.AddItemResult{}, err
	}

	order, err := c.ResolveOrGetOrder(ctx, tx, req.OrderID)
	if err != nil {
		return domain.AddItemResult{}, err
	}

	key := domain.OrderLineKey{OrderID: order.ID, ModelID: req.ModelID, SizeID: req.SizeID}

	// a freshly created order has no lines to merge with
	merged := false
	if req.OrderID != nil {
		existing, err := tx.Orders().GetOrderLine(ctx, key)
		if err != nil {
			return domain.AddItemResult{}, domain.Persistence(fmt.Errorf("find order line: %w", err))
		}
		merged = existing != nil
	}

	line, err := tx.Orders().AddToOrderLine(ctx, key, req.Quantity)
	if err != nil {
		return domain.AddItemResult{}, domain.Persistence(fmt.Errorf("write order line: %w", err))
	}

	return domain.AddItemResult{
		Order:      *order,
		Line:       *line,
		StockEntry: reservation.Entry,
		Merged:     merged,
	}, nil
}

// AddItemOnce is AddItem guarded by an idempotency key. A repeated key replays the first
// successful result; a key whose first request is still running fails with ErrDuplicateRequest.
func (c *OrderComposer) AddItemOnce(ctx context.Context, idempotencyKey string, req domain.AddItemRequest) (domain.AddItemResult, error) {
	if idempotencyKey == "" || c.cache == nil {
		return c.AddItem(ctx, req)
	}
	key := idempotencyKeyPrefix + idempotencyKey

	ok, err := c.cache.SetIdempotency(ctx, key)
	if err != nil {
		return domain.AddItemResult{}, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		payload, err := c.cache.GetResult(ctx, key)
		if err != nil {
			return domain.AddItemResult{}, fmt.Errorf("load stored result: %w", err)
		}
		if payload == nil {
			return domain.AddItemResult{}, ErrDuplicateRequest
		}
		var stored domain.AddItemResult
		if err := json.Unmarshal(payload, &stored); err != nil {
			return domain.AddItemResult{}, fmt.Errorf("decode stored result: %w", err)
		}
		return stored, nil
	}

	result, err := c.AddItem(ctx, req)

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	if err != nil {
		if relErr := c.cache.ReleaseIdempotency(cacheCtx, key); relErr != nil {
			c.log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
		}
		return domain.AddItemResult{}, err
	}

	payload, err := json.Marshal(result)
	if err == nil {
		err = c.cache.StoreResult(cacheCtx, key, payload)
	}
	if err != nil {
		// the order is committed, a failed replay record only costs a future duplicate error
		c.log.Warn("failed to store idempotent result", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

// Order returns the order with all of its lines.
func (c *OrderComposer) Order(ctx context.Context, id domain.OrderID) (domain.Order, error) {
	if id <= 0 {
		return domain.Order{}, domain.Invalid("order_id must be positive")
	}
	order, err := c.store.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, domain.Persistence(fmt.Errorf("load order: %w", err))
	}
	if order == nil {
		return domain.Order{}, domain.OrderNotFound(id)
	}
	return *order, nil
}

func (c *OrderComposer) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 10 * c.retryInterval
	return b
}

func (c *OrderComposer) logAddItem(req domain.AddItemRequest, res domain.AddItemResult, attempts int, err error) {
	fields := []zap.Field{
		zap.Int64("model_id", int64(req.ModelID)),
		zap.Int64("size_id", int64(req.SizeID)),
		zap.Int("quantity", req.Quantity),
		zap.Int("attempts", attempts),
	}
	if req.OrderID != nil {
		fields = append(fields, zap.Int64("requested_order_id", int64(*req.OrderID)))
	}

	switch domain.KindOf(err) {
	case 0:
		if domain.IsContextError(err) {
			c.log.Info("add item abandoned", append(fields, zap.Error(err))...)
			return
		}
		if err != nil {
			c.log.Error("add item failed", append(fields, zap.Error(err))...)
			return
		}
		c.log.Debug("item added to order", append(fields,
			zap.Int64("order_id", int64(res.Order.ID)),
			zap.Int("line_quantity", res.Line.Quantity),
			zap.Int("stock_left", res.StockEntry.Quantity),
			zap.Bool("merged", res.Merged))...)
	case domain.KindPersistence:
		c.log.Error("add item failed", append(fields, zap.Error(err))...)
	default:
		c.log.Info("add item rejected", append(fields, zap.Error(err))...)
	}
}
