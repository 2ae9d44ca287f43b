package service

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/id"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// maxStockItemLen bounds a single stock line; cookies can be long.
const maxStockItemLen = 64 << 10

// PlatformService provisions platforms and their stock pools.
type PlatformService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
	pick     store.StockPicker
}

// NewPlatformService creates a new platform service. A nil pick chooses the
// item RemoveItem takes uniformly at random.
func NewPlatformService(ledger store.Ledger, notifier Notifier, logger *slog.Logger, pick store.StockPicker) *PlatformService {
	return &PlatformService{
		store:    ledger,
		notifier: notifier,
		logger:   logger,
		pick:     store.PickOrDefault(pick),
	}
}

// CreatePlatformRequest describes a new platform.
type CreatePlatformRequest struct {
	Name  string `json:"name" validate:"required,platform,max=64"`
	Kind  string `json:"kind" validate:"omitempty,oneof=cookie account"`
	Price int64  `json:"price" validate:"min=0"`
}

func notFoundPlatform(name string) *domainerrors.Error {
	return domainerrors.PlatformNotFoundf("platform %q does not exist", strings.TrimSpace(name))
}

// Create adds a platform with an empty pool. Names are unique ignoring case
// and unicode width.
func (s *PlatformService) Create(ctx context.Context, actorID string, req CreatePlatformRequest) (*domain.Platform, error) {
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	kind, err := domain.ParsePlatformKind(req.Kind)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	platformID, err := id.Generate("platform")
	if err != nil {
		return nil, fmt.Errorf("generate platform ID: %w", err)
	}
	now := time.Now().UTC()
	platform := &domain.Platform{
		ID:        platformID,
		Name:      req.Name,
		Kind:      kind,
		Price:     req.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePlatform(ctx, platform); err != nil {
		return nil, storeError(err, "create platform", nil)
	}

	s.logger.Info("platform created", "actor_id", actorID, "platform", platform.Name, "kind", kind, "price", req.Price)
	s.emitChange(actorID, platform.Name, "created", map[string]string{
		"kind":  string(kind),
		"price": strconv.FormatInt(req.Price, 10),
	})
	return platform, nil
}

// Get returns one platform with its stock count.
func (s *PlatformService) Get(ctx context.Context, name string) (*domain.Platform, error) {
	platform, err := s.store.GetPlatform(ctx, name)
	if err != nil {
		return nil, storeError(err, "get platform", notFoundPlatform(name))
	}
	return platform, nil
}

// List returns every platform with its stock count.
func (s *PlatformService) List(ctx context.Context) ([]*domain.Platform, error) {
	platforms, err := s.store.ListPlatforms(ctx)
	if err != nil {
		return nil, storeError(err, "list platforms", nil)
	}
	return platforms, nil
}

// SetPrice changes a platform's price. Claims already made keep their price.
func (s *PlatformService) SetPrice(ctx context.Context, actorID, name string, price int64) (*domain.Platform, error) {
	if price < 0 {
		return nil, domainerrors.Validation("price must not be negative")
	}
	platform, err := s.store.SetPlatformPrice(ctx, name, price)
	if err != nil {
		return nil, storeError(err, "set platform price", notFoundPlatform(name))
	}

	s.logger.Info("platform price changed", "actor_id", actorID, "platform", platform.Name, "price", price)
	s.emitChange(actorID, platform.Name, "price", map[string]string{"price": strconv.FormatInt(price, 10)})
	return platform, nil
}

// Rename changes a platform's display name. Changing only its case is allowed.
func (s *PlatformService) Rename(ctx context.Context, actorID, name, newName string) (*domain.Platform, error) {
	newName = strings.Join(strings.Fields(newName), " ")
	if err := validate.Var("name", newName, "required,platform,max=64"); err != nil {
		return nil, err
	}
	platform, err := s.store.RenamePlatform(ctx, name, newName)
	if err != nil {
		return nil, storeError(err, "rename platform", notFoundPlatform(name))
	}

	s.logger.Info("platform renamed", "actor_id", actorID, "from", name, "to", platform.Name)
	s.emitChange(actorID, platform.Name, "renamed", map[string]string{"from": strings.TrimSpace(name)})
	return platform, nil
}

// Delete removes a platform together with its remaining stock.
func (s *PlatformService) Delete(ctx context.Context, actorID, name string) error {
	if err := s.store.DeletePlatform(ctx, name); err != nil {
		return storeError(err, "delete platform", notFoundPlatform(name))
	}
	s.logger.Info("platform deleted", "actor_id", actorID, "platform", name)
	s.emitChange(actorID, strings.TrimSpace(name), "deleted", nil)
	return nil
}

// AddStock appends items to a platform's pool and returns the new pool size.
// Items are trimmed and blank ones dropped; duplicates stay separate items.
func (s *PlatformService) AddStock(ctx context.Context, actorID, name string, items []string) (int, error) {
	items = domain.CleanStockItems(items)
	if len(items) == 0 {
		return 0, domainerrors.Validation("no stock items given")
	}
	for i, item := range items {
		if len(item) > maxStockItemLen {
			return 0, domainerrors.Validationf("stock item %d is too long", i+1)
		}
	}

	count, err := s.store.AppendStock(ctx, name, items)
	if err != nil {
		return 0, storeError(err, "append stock", notFoundPlatform(name))
	}

	s.logger.Info("stock added", "actor_id", actorID, "platform", name, "added", len(items), "stock", count)
	event := audit.NewEvent(audit.KindStockAdded)
	event.ActorID = actorID
	event.Platform = strings.TrimSpace(name)
	s.notifier.Notify(event.
		With("added", strconv.Itoa(len(items))).
		With("stock", strconv.Itoa(count)))
	return count, nil
}

// SplitStockLines splits an uploaded stock file into lines, accepting both
// LF and CRLF endings.
func SplitStockLines(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 4096), maxStockItemLen+2)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil {
		// A line over the buffer limit: fall back to a plain split so the
		// length check in AddStock reports it.
		return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}
	return lines
}

// Stock returns a snapshot of a platform's pool.
func (s *PlatformService) Stock(ctx context.Context, name string) ([]string, error) {
	items, err := s.store.GetStock(ctx, name)
	if err != nil {
		return nil, storeError(err, "get stock", notFoundPlatform(name))
	}
	return items, nil
}

// RemoveItem takes one item out of the pool without charging anyone and returns it.
func (s *PlatformService) RemoveItem(ctx context.Context, actorID, name string) (string, error) {
	item, err := s.store.RemoveStockItem(ctx, name, s.pick)
	if err != nil {
		return "", storeError(err, "remove stock item", notFoundPlatform(name))
	}

	s.logger.Info("stock item removed", "actor_id", actorID, "platform", name)
	event := audit.NewEvent(audit.KindStockRemoved)
	event.ActorID = actorID
	event.Platform = strings.TrimSpace(name)
	s.notifier.Notify(event)
	return item, nil
}

func (s *PlatformService) emitChange(actorID, platform, action string, details map[string]string) {
	event := audit.NewEvent(audit.KindPlatformChanged)
	event.ActorID = actorID
	event.Platform = platform
	event = event.With("action", action)
	for k, v := range details {
		event = event.With(k, v)
	}
	s.notifier.Notify(event)
}
