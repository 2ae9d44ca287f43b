package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// AdminService decides who may run admin commands and manages the admin list.
// Owners come from configuration: they are always admins, only they may
// change the admin list, and nobody can remove or ban them.
type AdminService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
	owners   []string
}

// NewAdminService creates a new admin service.
func NewAdminService(store store.Ledger, notifier Notifier, logger *slog.Logger, owners []string) *AdminService {
	return &AdminService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		owners:   slices.Clone(owners),
	}
}

// AdminList is the full set of people with admin rights.
type AdminList struct {
	Owners []string        `json:"owners"`
	Admins []*domain.Admin `json:"admins"`
}

// IsOwner reports whether userID is a configured owner.
func (s *AdminService) IsOwner(userID string) bool {
	return userID != "" && slices.Contains(s.owners, userID)
}

// Authorize returns nil if actorID may run admin commands right now.
func (s *AdminService) Authorize(ctx context.Context, actorID string) error {
	if actorID == "" {
		return domainerrors.Unauthorized("admin commands need an acting user")
	}
	if s.IsOwner(actorID) {
		return nil
	}

	admin, err := s.store.GetAdmin(ctx, actorID)
	if errors.Is(err, store.ErrNotFound) {
		return domainerrors.Forbidden("admin rights required")
	}
	if err != nil {
		return storeError(err, "get admin", nil)
	}
	if !admin.Active() {
		return domainerrors.Forbidden("admin rights suspended")
	}
	return nil
}

// AuthorizeOwner returns nil if actorID is an owner.
func (s *AdminService) AuthorizeOwner(actorID string) error {
	if !s.IsOwner(actorID) {
		return domainerrors.Forbidden("only owners can manage admins")
	}
	return nil
}

// List returns owners and stored admins.
func (s *AdminService) List(ctx context.Context) (*AdminList, error) {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return nil, storeError(err, "list admins", nil)
	}
	if admins == nil {
		admins = []*domain.Admin{}
	}
	return &AdminList{Owners: slices.Clone(s.owners), Admins: admins}, nil
}

// Add grants admin rights to userID, lifting any earlier suspension.
func (s *AdminService) Add(ctx context.Context, actorID, userID string) error {
	if err := s.AuthorizeOwner(actorID); err != nil {
		return err
	}
	if err := validate.Var("user_id", userID, "required,chatid,max=64"); err != nil {
		return err
	}
	if s.IsOwner(userID) {
		return domainerrors.Conflict("owners are always admins")
	}

	if err := s.store.UpsertAdmin(ctx, &domain.Admin{
		UserID:    userID,
		AddedBy:   actorID,
		CreatedAt: time.Now(),
	}); err != nil {
		return storeError(err, "upsert admin", nil)
	}

	s.logger.Info("admin added", "actor_id", actorID, "user_id", userID)
	s.emit(actorID, userID, "added")
	return nil
}

// Remove revokes userID's admin rights.
func (s *AdminService) Remove(ctx context.Context, actorID, userID string) error {
	if err := s.AuthorizeOwner(actorID); err != nil {
		return err
	}
	if s.IsOwner(userID) {
		return domainerrors.Forbidden("owners cannot be removed")
	}
	if err := s.store.RemoveAdmin(ctx, userID); err != nil {
		return storeError(err, "remove admin", domainerrors.NotFound("admin not found"))
	}

	s.logger.Info("admin removed", "actor_id", actorID, "user_id", userID)
	s.emit(actorID, userID, "removed")
	return nil
}

// SetBanned suspends or restores an admin without removing them.
func (s *AdminService) SetBanned(ctx context.Context, actorID, userID string, banned bool) error {
	if err := s.AuthorizeOwner(actorID); err != nil {
		return err
	}
	if s.IsOwner(userID) {
		return domainerrors.Forbidden("owners cannot be banned")
	}
	if err := s.store.SetAdminBanned(ctx, userID, banned); err != nil {
		return storeError(err, "set admin banned", domainerrors.NotFound("admin not found"))
	}

	s.logger.Info("admin ban changed", "actor_id", actorID, "user_id", userID, "banned", banned)
	action := "unbanned"
	if banned {
		action = "banned"
	}
	s.emit(actorID, userID, action)
	return nil
}

func (s *AdminService) emit(actorID, userID, action string) {
	event := audit.NewEvent(audit.KindAdminChanged)
	event.ActorID = actorID
	event.UserID = userID
	s.notifier.Notify(event.With("action", action).With("owner", strconv.FormatBool(s.IsOwner(actorID))))
}
