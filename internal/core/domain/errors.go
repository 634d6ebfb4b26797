package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed set of failures the ordering core reports.
type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindInsufficientStock
	KindConflict
	KindPersistence
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInsufficientStock:
		return "insufficient stock"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence failure"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

const (
	EntityOrder      = "order"
	EntityStockEntry = "stock entry"
)

type Error struct {
	Kind    Kind
	Entity  string
	Message string

	// Requested and Available are set for KindInsufficientStock.
	Requested int
	Available int

	Err error
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrOrderNotFound      = &Error{Kind: KindNotFound, Entity: EntityOrder}
	ErrStockEntryNotFound = &Error{Kind: KindNotFound, Entity: EntityStockEntry}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
		if e.Entity != "" {
			msg = e.Entity + " " + msg
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Entity when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Entity == "" || t.Entity == e.Entity)
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func OrderNotFound(id OrderID) error {
	return &Error{Kind: KindNotFound, Entity: EntityOrder, Message: fmt.Sprintf("order %d does not exist", id)}
}

func StockEntryNotFound(key StockKey) error {
	return &Error{
		Kind:    KindNotFound,
		Entity:  EntityStockEntry,
		Message: fmt.Sprintf("model %d is not stocked in size %d", key.ModelID, key.SizeID),
	}
}

func InsufficientStock(key StockKey, requested, available int) error {
	return &Error{
		Kind:      KindInsufficientStock,
		Entity:    EntityStockEntry,
		Message:   fmt.Sprintf("requested %d of model %d size %d, %d available", requested, key.ModelID, key.SizeID, available),
		Requested: requested,
		Available: available,
	}
}

func Invalid(msg string) error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func Conflict(err error) error {
	return &Error{Kind: KindConflict, Err: err}
}

// Persistence wraps a store failure. Errors that already carry a Kind, and
// cancellation or deadline errors of the caller's context, pass through unchanged.
func Persistence(err error) error {
	if err == nil || KindOf(err) != 0 || IsContextError(err) {
		return err
	}
	return &Error{Kind: KindPersistence, Err: err}
}

// IsContextError reports whether err comes from a cancelled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
