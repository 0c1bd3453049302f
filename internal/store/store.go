package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound occurs when the requested wallet identifier has no
	// corresponding record.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrConflict indicates the wallet row changed underneath the caller
	// (stale version stamp). It is surfaced as-is and never retried here.
	ErrConflict = errors.New("wallet version conflict")

	// ErrWalletExists indicates a duplicate wallet identifier on create.
	ErrWalletExists = errors.New("wallet already exists")
)

// Purchase channels.
const (
	ChannelOnline  = "online"
	ChannelOffline = "offline"
)

// Wallet is the balance-holding record. Version increases by one on every
// committed mutation and backs the compare-and-set in SaveWallet.
type Wallet struct {
	ID        string
	ClientID  string
	Balance   decimal.Decimal
	Version   int64
	CreatedAt time.Time
}

// Purchase is an immutable audit record pairing a wallet debit with a sales
// channel. Exactly one of StoreURL (online) or StoreAddress (offline) is set,
// depending on Channel.
type Purchase struct {
	ID           string
	WalletID     string
	Amount       decimal.Decimal
	Channel      string
	StoreURL     string
	StoreAddress string
	CreatedAt    time.Time
}

// Store defines the contract implemented by wallet storage backends.
// SaveWallet and SaveWalletAndPurchase expect the caller to hold exclusive
// access to the wallet; the version compare-and-set catches anything that
// slips past it.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	Wallet(ctx context.Context, id string) (Wallet, error)
	SaveWallet(ctx context.Context, w Wallet) error
	SaveWalletAndPurchase(ctx context.Context, w Wallet, p Purchase) error
	PurchasesByWallet(ctx context.Context, walletID string) ([]Purchase, error)
}
