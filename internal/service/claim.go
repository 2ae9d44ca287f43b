package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// ClaimService hands out stock items in exchange for points.
type ClaimService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
	pick     store.StockPicker
}

// NewClaimService creates a new claim service. A nil pick chooses uniformly at random.
func NewClaimService(ledger store.Ledger, notifier Notifier, logger *slog.Logger, pick store.StockPicker) *ClaimService {
	return &ClaimService{
		store:    ledger,
		notifier: notifier,
		logger:   logger,
		pick:     store.PickOrDefault(pick),
	}
}

// ClaimResult is returned after a successful claim.
type ClaimResult struct {
	Platform  string              `json:"platform"`
	Kind      domain.PlatformKind `json:"kind"`
	Item      string              `json:"item"`
	Price     int64               `json:"price"`     // Amount debited
	Balance   int64               `json:"balance"`   // Balance after the debit
	Remaining int                 `json:"remaining"` // Items left in the pool
}

// Claim removes one item from the platform's pool and debits its price from userID.
// Failures are checked in order: PlatformNotFound, InsufficientFunds, StockEmpty.
// Either both the removal and the debit happen or neither does.
func (s *ClaimService) Claim(ctx context.Context, userID, platform string) (*ClaimResult, error) {
	if domain.PlatformKey(platform) == "" {
		return nil, domainerrors.Validation("platform is required")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	if user.Banned {
		return nil, domainerrors.Forbidden("banned users cannot claim items")
	}

	result, err := s.store.ClaimStockItem(ctx, platform, userID, s.pick)
	if err != nil {
		err = storeError(err, "claim stock item", domainerrors.PlatformNotFoundf("platform %q does not exist", platform))
		if domainerrors.Is(err, domainerrors.ErrInsufficientFunds) {
			s.logger.Debug("claim refused, balance too low", "user_id", userID, "platform", platform)
		}
		return nil, err
	}

	s.logger.Info("item claimed",
		"user_id", userID,
		"platform", result.Platform.Name,
		"price", result.Platform.Price,
		"balance", result.Balance,
		"remaining", result.Platform.Stock,
	)

	event := audit.NewEvent(audit.KindItemClaimed)
	event.At = result.ClaimedAt
	event.UserID = userID
	event.Platform = result.Platform.Name
	event.Points = -result.Platform.Price
	event.Balance = result.Balance
	s.notifier.Notify(event.With("remaining", strconv.Itoa(result.Platform.Stock)))

	return &ClaimResult{
		Platform:  result.Platform.Name,
		Kind:      result.Platform.Kind,
		Item:      result.Item,
		Price:     result.Platform.Price,
		Balance:   result.Balance,
		Remaining: result.Platform.Stock,
	}, nil
}
