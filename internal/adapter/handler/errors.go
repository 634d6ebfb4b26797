package handler

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/rl1809/obesho/internal/core/domain"
	"github.com/rl1809/obesho/internal/core/service"
)

const (
	internalErrorMessage = "internal error"

	// statusClientClosedRequest is the nginx code for a client that gave up before the response.
	statusClientClosedRequest = 499
)

// httpStatus maps an ordering error to a status code and the message shown to the client.
// Store failures are not described to clients.
func httpStatus(err error) (int, string) {
	if errors.Is(err, service.ErrDuplicateRequest) {
		return http.StatusConflict, "duplicate request"
	}
	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request timed out"
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound, err.Error()
	case domain.KindInsufficientStock:
		return http.StatusGone, err.Error()
	case domain.KindConflict:
		return http.StatusConflict, "concurrent update, please retry"
	case domain.KindInvalidArgument:
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func grpcCode(err error) (codes.Code, string) {
	if errors.Is(err, service.ErrDuplicateRequest) {
		return codes.AlreadyExists, "duplicate request"
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled, "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded, "request timed out"
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return codes.NotFound, err.Error()
	case domain.KindInsufficientStock:
		return codes.FailedPrecondition, err.Error()
	case domain.KindConflict:
		return codes.Aborted, "concurrent update, please retry"
	case domain.KindInvalidArgument:
		return codes.InvalidArgument, err.Error()
	default:
		return codes.Internal, internalErrorMessage
	}
}
