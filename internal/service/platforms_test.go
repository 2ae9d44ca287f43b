package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func TestPlatformService_CreateAndList(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	p, err := f.platforms.Create(ctx, testOwner, CreatePlatformRequest{Name: "  Prime   Video ", Kind: "cookie", Price: 4})
	require.NoError(t, err)
	assert.Equal(t, "Prime Video", p.Name)
	assert.Equal(t, domain.PlatformCookie, p.Kind)

	_, err = f.platforms.Create(ctx, testOwner, CreatePlatformRequest{Name: "PRIME VIDEO"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	_, err = f.platforms.Create(ctx, testOwner, CreatePlatformRequest{Name: "Netflix"})
	require.NoError(t, err)

	platforms, err := f.platforms.List(ctx)
	require.NoError(t, err)
	require.Len(t, platforms, 2)
	assert.Equal(t, "Netflix", platforms[0].Name)
	assert.Equal(t, domain.PlatformAccount, platforms[0].Kind, "kind defaults to account")

	got, err := f.platforms.Get(ctx, "ｐｒｉｍｅ video")
	require.NoError(t, err)
	assert.Equal(t, "Prime Video", got.Name)
}

func TestPlatformService_CreateValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	bad := []CreatePlatformRequest{
		{Name: ""},
		{Name: "   "},
		{Name: "Netflix", Price: -1},
		{Name: "Netflix", Kind: "voucher"},
	}
	for _, req := range bad {
		_, err := f.platforms.Create(ctx, testOwner, req)
		assert.ErrorIs(t, err, domainerrors.ErrValidation, "%+v", req)
	}
}

func TestPlatformService_AddStockFromUpload(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addPlatform(t, "Netflix", 2)

	count, err := f.platforms.AddStock(ctx, testOwner, "netflix", SplitStockLines("a@x.com:1\r\n\r\n  b@x.com:2  \na@x.com:1\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stock, err := f.platforms.Stock(ctx, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com:1", "b@x.com:2", "a@x.com:1"}, stock, "duplicates stay separate items")

	_, err = f.platforms.AddStock(ctx, testOwner, "Netflix", SplitStockLines("\n \n"))
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = f.platforms.AddStock(ctx, testOwner, "Hulu", []string{"x"})
	assert.ErrorIs(t, err, domainerrors.ErrPlatformNotFound)

	events := f.notifier.ofKind(audit.KindStockAdded)
	require.Len(t, events, 1)
	assert.Equal(t, "3", events[0].Details["added"])
}

func TestPlatformService_PriceRenameDelete(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addPlatform(t, "Netflix", 2, "item")
	f.addPlatform(t, "Hulu", 1)

	p, err := f.platforms.SetPrice(ctx, testOwner, "netflix", 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), p.Price)

	_, err = f.platforms.SetPrice(ctx, testOwner, "netflix", -1)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = f.platforms.Rename(ctx, testOwner, "Netflix", "hulu")
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	p, err = f.platforms.Rename(ctx, testOwner, "Netflix", "Netflix Premium")
	require.NoError(t, err)
	assert.Equal(t, "Netflix Premium", p.Name)
	assert.Equal(t, 1, p.Stock, "stock follows the rename")

	require.NoError(t, f.platforms.Delete(ctx, testOwner, "netflix premium"))
	_, err = f.platforms.Get(ctx, "Netflix Premium")
	assert.ErrorIs(t, err, domainerrors.ErrPlatformNotFound)
	assert.ErrorIs(t, f.platforms.Delete(ctx, testOwner, "Netflix Premium"), domainerrors.ErrPlatformNotFound)
}

func TestPlatformService_RemoveItem(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.addPlatform(t, "Netflix", 2, "only")
	f.addUser(t, "u1", 10)

	item, err := f.platforms.RemoveItem(ctx, testOwner, "Netflix")
	require.NoError(t, err)
	assert.Equal(t, "only", item)
	assert.Equal(t, int64(10), f.balance(t, "u1"))

	_, err = f.platforms.RemoveItem(ctx, testOwner, "Netflix")
	assert.ErrorIs(t, err, domainerrors.ErrStockEmpty)
}

func TestSplitStockLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, SplitStockLines("a\r\nb\n\n"))
	assert.Nil(t, SplitStockLines(""))
}
