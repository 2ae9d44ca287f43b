package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func TestAdminService_Authorize(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	assert.NoError(t, f.admins.Authorize(ctx, testOwner))
	assert.ErrorIs(t, f.admins.Authorize(ctx, ""), domainerrors.ErrUnauthorized)
	assert.ErrorIs(t, f.admins.Authorize(ctx, "stranger"), domainerrors.ErrForbidden)

	require.NoError(t, f.admins.Add(ctx, testOwner, "mod"))
	assert.NoError(t, f.admins.Authorize(ctx, "mod"))

	require.NoError(t, f.admins.SetBanned(ctx, testOwner, "mod", true))
	assert.ErrorIs(t, f.admins.Authorize(ctx, "mod"), domainerrors.ErrForbidden)

	// Re-adding lifts the suspension.
	require.NoError(t, f.admins.Add(ctx, testOwner, "mod"))
	assert.NoError(t, f.admins.Authorize(ctx, "mod"))

	require.NoError(t, f.admins.Remove(ctx, testOwner, "mod"))
	assert.ErrorIs(t, f.admins.Authorize(ctx, "mod"), domainerrors.ErrForbidden)
}

func TestAdminService_OwnersAreProtected(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.admins.Add(ctx, testOwner, "mod"))

	assert.ErrorIs(t, f.admins.Remove(ctx, testOwner, testOwner), domainerrors.ErrForbidden)
	assert.ErrorIs(t, f.admins.SetBanned(ctx, testOwner, testOwner, true), domainerrors.ErrForbidden)
	assert.ErrorIs(t, f.admins.Add(ctx, testOwner, testOwner), domainerrors.ErrConflict)

	// Only owners manage the list.
	assert.ErrorIs(t, f.admins.Add(ctx, "mod", "friend"), domainerrors.ErrForbidden)
	assert.ErrorIs(t, f.admins.Remove(ctx, "mod", "mod"), domainerrors.ErrForbidden)

	assert.ErrorIs(t, f.admins.Remove(ctx, testOwner, "never-added"), domainerrors.ErrNotFound)
}

func TestAdminService_List(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	list, err := f.admins.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testOwner}, list.Owners)
	assert.NotNil(t, list.Admins)
	assert.Empty(t, list.Admins)

	require.NoError(t, f.admins.Add(ctx, testOwner, "mod"))
	list, err = f.admins.List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Admins, 1)
	assert.Equal(t, "mod", list.Admins[0].UserID)
	assert.Equal(t, testOwner, list.Admins[0].AddedBy)
}
