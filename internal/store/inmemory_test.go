package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestWallet(t *testing.T, s Store, balance string) Wallet {
	t.Helper()
	w := Wallet{
		ID:        uuid.NewString(),
		ClientID:  uuid.NewString(),
		Balance:   decimal.RequireFromString(balance),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateWallet(context.Background(), w))
	return w
}

func TestWalletNotFound(t *testing.T) {
	s := NewInMemory()
	_, err := s.Wallet(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestCreateWalletRejectsDuplicates(t *testing.T) {
	s := NewInMemory()
	w := newTestWallet(t, s, "10.00")
	require.ErrorIs(t, s.CreateWallet(context.Background(), w), ErrWalletExists)
}

func TestSaveWalletBumpsVersion(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s, "10.00")

	w.Balance = decimal.RequireFromString("15.00")
	require.NoError(t, s.SaveWallet(ctx, w))

	stored, err := s.Wallet(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, stored.Balance.Equal(decimal.RequireFromString("15.00")))
	require.Equal(t, w.Version+1, stored.Version)
}

func TestSaveWalletDetectsStaleVersion(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s, "10.00")

	first := w
	first.Balance = decimal.RequireFromString("20.00")
	require.NoError(t, s.SaveWallet(ctx, first))

	// Second writer still holds the original version stamp.
	stale := w
	stale.Balance = decimal.RequireFromString("30.00")
	require.ErrorIs(t, s.SaveWallet(ctx, stale), ErrConflict)

	stored, err := s.Wallet(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, stored.Balance.Equal(decimal.RequireFromString("20.00")))
}

func TestSaveWalletAndPurchaseIsAtomic(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	w := newTestWallet(t, s, "100.00")

	p := Purchase{
		ID:        uuid.NewString(),
		WalletID:  w.ID,
		Amount:    decimal.RequireFromString("40.00"),
		Channel:   ChannelOnline,
		StoreURL:  "https://shop.example",
		CreatedAt: time.Now().UTC(),
	}
	debited := w
	debited.Balance = decimal.RequireFromString("60.00")
	require.NoError(t, s.SaveWalletAndPurchase(ctx, debited, p))

	records, err := s.PurchasesByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, p.ID, records[0].ID)

	// A conflicting balance write must leave no purchase behind.
	stale := w
	stale.Balance = decimal.RequireFromString("10.00")
	require.ErrorIs(t, s.SaveWalletAndPurchase(ctx, stale, Purchase{
		ID:       uuid.NewString(),
		WalletID: w.ID,
		Amount:   decimal.RequireFromString("90.00"),
		Channel:  ChannelOffline,
	}), ErrConflict)

	records, err = s.PurchasesByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)

	stored, err := s.Wallet(ctx, w.ID)
	require.NoError(t, err)
	require.True(t, stored.Balance.Equal(decimal.RequireFromString("60.00")))
}

func TestPurchasesByWalletUnknownWallet(t *testing.T) {
	s := NewInMemory()
	_, err := s.PurchasesByWallet(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, ErrWalletNotFound)
}
