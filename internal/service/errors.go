package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/errs"
)

var errInternal = errors.New("internal error")

// toConnectError maps domain errors onto Connect codes. Invariant
// violations and unknown errors are logged and hidden from the caller.
func toConnectError(ctx context.Context, op string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	var e *errs.Error
	if !errors.As(err, &e) {
		slog.ErrorContext(ctx, op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}

	switch e.Kind {
	case errs.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, e)
	case errs.KindNotFound:
		return connect.NewError(connect.CodeNotFound, e)
	case errs.KindStateConflict:
		if errors.Is(e, errs.ErrDuplicateContribution) || errors.Is(e, errs.ErrDuplicatePayout) {
			return connect.NewError(connect.CodeAlreadyExists, e)
		}
		return connect.NewError(connect.CodeFailedPrecondition, e)
	case errs.KindInvariantViolation:
		// Guarding the last admin is a normal refusal, not corruption.
		if errors.Is(e, errs.ErrLastAdmin) {
			return connect.NewError(connect.CodeFailedPrecondition, e)
		}
		slog.ErrorContext(ctx, op+" violated a ledger invariant", "code", e.Code, "error", e)
		return connect.NewError(connect.CodeInternal, errInternal)
	default:
		slog.ErrorContext(ctx, op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}
