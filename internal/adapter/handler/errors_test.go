package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/core/service"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantGRPC codes.Code
	}{
		{"order not found", domain.OrderNotFound(9), http.StatusNotFound, codes.NotFound},
		{"insufficient stock", domain.InsufficientStock(domain.StockKey{ModelID: 1, SizeID: 36}, 1, 0), http.StatusGone, codes.FailedPrecondition},
		{"conflict", domain.Conflict(errors.New("deadlock")), http.StatusConflict, codes.Aborted},
		{"duplicate", service.ErrDuplicateRequest, http.StatusConflict, codes.AlreadyExists},
		{"invalid", domain.Invalid("quantity must be positive"), http.StatusBadRequest, codes.InvalidArgument},
		{"persistence", domain.Persistence(errors.New("connection reset")), http.StatusInternalServerError, codes.Internal},
		{"canceled", context.Canceled, statusClientClosedRequest, codes.Canceled},
		{"canceled wrapped", fmt.Errorf("idempotency check failed: %w", context.Canceled), statusClientClosedRequest, codes.Canceled},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, codes.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := httpStatus(tt.err)
			assert.Equal(t, tt.wantHTTP, code)

			gcode, _ := grpcCode(tt.err)
			assert.Equal(t, tt.wantGRPC, gcode)
		})
	}
}

func TestErrorMapping_HidesStoreDetails(t *testing.T) {
	err := domain.Persistence(errors.New("dial tcp 10.0.0.3:3306: connection refused"))

	_, msg := httpStatus(err)
	assert.Equal(t, internalErrorMessage, msg)

	_, msg = grpcCode(err)
	assert.Equal(t, internalErrorMessage, msg)
}
