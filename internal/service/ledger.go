package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
	"github.com/pointsbot/pointsbot-server/internal/validation"
)

// Notifier receives audit events. Notify must not block; delivery failures
// are the notifier's problem, never the caller's.
type Notifier interface {
	Notify(event audit.Event)
}

// NopNotifier discards every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(audit.Event) {}

// storeError translates a store error into a domain error.
// notFound, when non-nil, replaces the generic not-found error so callers can
// say which resource was missing. Errors that did not come from the store are
// wrapped with op and surface as internal errors.
func storeError(err error, op string, notFound *domainerrors.Error) error {
	var se *store.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		if notFound != nil {
			return notFound.WithCause(err)
		}
		return domainerrors.NotFound(se.Message).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(se.Message).WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(se.Message).WithCause(err)
	case errors.Is(err, store.ErrInsufficientFunds):
		return domainerrors.ErrInsufficientFunds.WithCause(err)
	case errors.Is(err, store.ErrStockEmpty):
		return domainerrors.ErrStockEmpty.WithCause(err)
	case errors.Is(err, store.ErrKeyClaimed):
		return domainerrors.ErrKeyAlreadyClaimed.WithCause(err)
	case errors.Is(err, store.ErrAlreadyReferred):
		return domainerrors.ErrAlreadyReferred.WithCause(err)
	case errors.Is(err, store.ErrReportTaken):
		return domainerrors.Conflict("report already taken by another admin").WithCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return domainerrors.StoreUnavailable(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// normalizeKeyCode uppercases a typed code and strips surrounding space.
func normalizeKeyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validate is the shared request validator.
var validate = validation.New()
