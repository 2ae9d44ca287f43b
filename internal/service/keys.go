package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/id"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// codeCollisionRetries is how often a batch is regenerated after a code collision.
const codeCollisionRetries = 3

// KeyService issues and redeems single-use point keys.
type KeyService struct {
	store      store.Ledger
	notifier   Notifier
	logger     *slog.Logger
	codeLength int
}

// NewKeyService creates a new key service.
func NewKeyService(store store.Ledger, notifier Notifier, logger *slog.Logger, codeLength int) *KeyService {
	if codeLength <= 0 {
		codeLength = id.DefaultCodeLength
	}
	return &KeyService{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		codeLength: codeLength,
	}
}

// RedeemResult is returned after a successful redemption.
type RedeemResult struct {
	Code    string         `json:"code"`
	Kind    domain.KeyKind `json:"kind"`
	Points  int64          `json:"points"`  // Amount credited
	Balance int64          `json:"balance"` // Balance after the credit
}

// Redeem claims a key for userID and credits its points.
// Of any number of concurrent redemptions of one code exactly one succeeds;
// the rest get KeyAlreadyClaimed.
func (s *KeyService) Redeem(ctx context.Context, userID, code string) (*RedeemResult, error) {
	code = normalizeKeyCode(code)
	if code == "" {
		return nil, domainerrors.Validation("key code is required")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	if user.Banned {
		return nil, domainerrors.Forbidden("banned users cannot redeem keys")
	}

	result, err := s.store.RedeemKey(ctx, code, userID, time.Now())
	if err != nil {
		return nil, storeError(err, "redeem key", domainerrors.KeyNotFound("key "+code+" does not exist"))
	}

	s.logger.Info("key redeemed",
		"user_id", userID,
		"key_code", result.Key.Code,
		"points", result.Key.Points,
		"balance", result.Balance,
	)

	event := audit.NewEvent(audit.KindKeyRedeemed)
	event.UserID = userID
	event.KeyCode = result.Key.Code
	event.Points = result.Key.Points
	event.Balance = result.Balance
	s.notifier.Notify(event.With("kind", string(result.Key.Kind)))

	return &RedeemResult{
		Code:    result.Key.Code,
		Kind:    result.Key.Kind,
		Points:  result.Key.Points,
		Balance: result.Balance,
	}, nil
}

// GenerateKeysRequest describes a batch of keys to create.
type GenerateKeysRequest struct {
	Count  int    `json:"count" validate:"required,min=1,max=500"`
	Kind   string `json:"kind" validate:"omitempty,oneof=standard premium"`
	Points int64  `json:"points" validate:"required,min=1,max=1000000000000"`
}

// Generate creates a batch of unclaimed keys worth req.Points each.
// The whole batch is stored or none of it is.
func (s *KeyService) Generate(ctx context.Context, actorID string, req GenerateKeysRequest) ([]*domain.Key, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	kind, err := domain.ParseKeyKind(req.Kind)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	var keys []*domain.Key
	for attempt := 1; ; attempt++ {
		keys, err = s.newBatch(kind, req.Count, req.Points, actorID)
		if err != nil {
			return nil, err
		}

		err = s.store.CreateKeys(ctx, keys)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) || attempt == codeCollisionRetries {
			return nil, storeError(err, "create keys", nil)
		}
		s.logger.Warn("key code collision, regenerating batch", "attempt", attempt)
	}

	s.logger.Info("keys generated",
		"actor_id", actorID,
		"kind", kind,
		"count", len(keys),
		"points", req.Points,
	)

	event := audit.NewEvent(audit.KindKeysGenerated)
	event.ActorID = actorID
	event.Points = req.Points
	s.notifier.Notify(event.
		With("kind", string(kind)).
		With("count", strconv.Itoa(len(keys))))

	return keys, nil
}

func (s *KeyService) newBatch(kind domain.KeyKind, count int, points int64, actorID string) ([]*domain.Key, error) {
	now := time.Now().UTC()
	seen := make(map[string]bool, count)
	keys := make([]*domain.Key, 0, count)
	for len(keys) < count {
		code, err := id.KeyCode(kind.Prefix(), s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generate key code: %w", err)
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		keys = append(keys, &domain.Key{
			Code:      code,
			Kind:      kind,
			Points:    points,
			CreatedBy: actorID,
			CreatedAt: now,
		})
	}
	return keys, nil
}

// Get returns one key by code.
func (s *KeyService) Get(ctx context.Context, code string) (*domain.Key, error) {
	code = normalizeKeyCode(code)
	key, err := s.store.GetKey(ctx, code)
	if err != nil {
		return nil, storeError(err, "get key", domainerrors.KeyNotFound("key "+code+" does not exist"))
	}
	return key, nil
}

// List returns keys matching filter, newest first.
func (s *KeyService) List(ctx context.Context, filter store.KeyFilter) ([]*domain.Key, error) {
	filter.Normalize()
	keys, err := s.store.ListKeys(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list keys", nil)
	}
	return keys, nil
}
