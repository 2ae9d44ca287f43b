package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// UserService handles first contact, profiles, bans and manual point changes.
type UserService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(store store.Ledger, notifier Notifier, logger *slog.Logger) *UserService {
	return &UserService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// RegisterRequest describes a first contact.
type RegisterRequest struct {
	ID          string `json:"id" validate:"required,chatid,max=64"`
	DisplayName string `json:"display_name" validate:"max=128"`
	ReferrerID  string `json:"referrer_id" validate:"omitempty,chatid,max=64"` // Referral code: the referrer's id
}

// RegisterResult is returned by Register.
type RegisterResult struct {
	User    *domain.User `json:"user"`
	Created bool         `json:"created"`
}

// Register records a first contact. A referrer is attached only to a new user,
// and only if it exists and is not the user themself; anything else is ignored.
// Registering an existing user refreshes its display name and never touches
// its referral state.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	referrer := s.usableReferrer(ctx, req.ID, req.ReferrerID)

	user, created, err := s.store.UpsertUser(ctx, &domain.User{
		ID:              req.ID,
		DisplayName:     req.DisplayName,
		JoinedAt:        time.Now(),
		PendingReferrer: referrer,
	})
	if errors.Is(err, store.ErrInvalidInput) && referrer != "" {
		// The referrer vanished between the lookup and the insert.
		user, created, err = s.store.UpsertUser(ctx, &domain.User{
			ID:          req.ID,
			DisplayName: req.DisplayName,
			JoinedAt:    time.Now(),
		})
	}
	if err != nil {
		return nil, storeError(err, "upsert user", nil)
	}

	if created {
		s.logger.Info("user registered",
			"user_id", user.ID,
			"pending_referrer", user.PendingReferrer,
		)
		event := audit.NewEvent(audit.KindUserRegistered)
		event.UserID = user.ID
		if user.PendingReferrer != "" {
			event = event.With("referrer_id", user.PendingReferrer)
		}
		s.notifier.Notify(event)
	}

	return &RegisterResult{User: user, Created: created}, nil
}

// usableReferrer returns referrerID if it may be recorded for userID, or "".
func (s *UserService) usableReferrer(ctx context.Context, userID, referrerID string) string {
	if referrerID == "" || referrerID == userID {
		return ""
	}
	if _, err := s.store.GetUser(ctx, referrerID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("referrer lookup failed, ignoring referral",
				"user_id", userID,
				"referrer_id", referrerID,
				"error", err,
			)
		}
		return ""
	}
	return referrerID
}

// Get returns a user's profile.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	return user, nil
}

// Balance returns a user's current points.
func (s *UserService) Balance(ctx context.Context, userID string) (int64, error) {
	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, storeError(err, "get balance", domainerrors.NotFound("user not found"))
	}
	return balance, nil
}

// SetBanned bans or unbans a user.
func (s *UserService) SetBanned(ctx context.Context, actorID, userID string, banned bool) error {
	if actorID == userID && banned {
		return domainerrors.Forbidden("admins cannot ban themselves")
	}
	if err := s.store.SetUserBanned(ctx, userID, banned); err != nil {
		return storeError(err, "set user banned", domainerrors.NotFound("user not found"))
	}

	s.logger.Info("user ban changed", "actor_id", actorID, "user_id", userID, "banned", banned)
	event := audit.NewEvent(audit.KindUserBanned)
	event.ActorID = actorID
	event.UserID = userID
	s.notifier.Notify(event.With("banned", strconv.FormatBool(banned)))
	return nil
}

// AdjustPoints grants (delta > 0) or deducts (delta < 0) points and returns the
// new balance. A deduction that would go below zero fails with InsufficientFunds.
func (s *UserService) AdjustPoints(ctx context.Context, actorID, userID string, delta int64) (int64, error) {
	if delta == 0 {
		return 0, domainerrors.Validation("points must not be zero")
	}
	if delta > domain.MaxPoints || delta < -domain.MaxPoints {
		return 0, domainerrors.Validationf("points must be within ±%d", domain.MaxPoints)
	}
	balance, err := s.store.AdjustBalance(ctx, userID, delta)
	if err != nil {
		return 0, storeError(err, "adjust balance", domainerrors.NotFound("user not found"))
	}

	s.logger.Info("points adjusted",
		"actor_id", actorID,
		"user_id", userID,
		"delta", delta,
		"balance", balance,
	)
	event := audit.NewEvent(audit.KindPointsAdjusted)
	event.ActorID = actorID
	event.UserID = userID
	event.Points = delta
	event.Balance = balance
	s.notifier.Notify(event)
	return balance, nil
}
