// Package purchase records purchases as a wallet debit paired with an
// immutable audit entry, committed as one atomic unit.
package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/lock"
	"github.com/vaultpay/vaultpay/internal/store"
	"github.com/vaultpay/vaultpay/internal/wallet"
)

var (
	// ErrInvalidChannel indicates an unrecognised purchase channel.
	ErrInvalidChannel = errors.New("invalid purchase channel")

	// ErrMissingDescriptor indicates the channel-specific store descriptor
	// (URL for online, address for offline) was empty.
	ErrMissingDescriptor = errors.New("missing store descriptor")
)

// Service debits wallets and writes purchase records. It shares the wallet
// lock coordinator with the wallet service so debits serialize with every
// other operation on the same wallet.
type Service struct {
	store store.Store
	locks *lock.Coordinator
}

// NewService builds a purchase service instance.
func NewService(st store.Store, locks *lock.Coordinator) *Service {
	return &Service{store: st, locks: locks}
}

// Input captures a purchase to record. Descriptor is the store URL for the
// online channel and the store address for the offline channel.
type Input struct {
	WalletID   string
	Channel    string
	Descriptor string
	Amount     decimal.Decimal
}

// Record debits the wallet and persists the purchase record. Either both
// writes commit or neither does; on any failure the balance is unchanged and
// no record exists for the attempt.
func (s *Service) Record(ctx context.Context, input Input) (store.Purchase, error) {
	if input.Channel != store.ChannelOnline && input.Channel != store.ChannelOffline {
		return store.Purchase{}, ErrInvalidChannel
	}
	if input.Descriptor == "" {
		return store.Purchase{}, ErrMissingDescriptor
	}
	if !input.Amount.IsPositive() {
		return store.Purchase{}, wallet.ErrInvalidAmount
	}

	var record store.Purchase
	err := s.locks.Do(ctx, input.WalletID, func(ctx context.Context) error {
		w, err := s.store.Wallet(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if w.Balance.LessThan(input.Amount) {
			return wallet.ErrInsufficientFunds
		}
		w.Balance = w.Balance.Sub(input.Amount)

		p := store.Purchase{
			ID:        uuid.New().String(),
			WalletID:  w.ID,
			Amount:    input.Amount,
			Channel:   input.Channel,
			CreatedAt: time.Now().UTC(),
		}
		if input.Channel == store.ChannelOnline {
			p.StoreURL = input.Descriptor
		} else {
			p.StoreAddress = input.Descriptor
		}

		if err := s.store.SaveWalletAndPurchase(ctx, w, p); err != nil {
			return err
		}
		record = p
		return nil
	})
	if err != nil {
		return store.Purchase{}, err
	}
	return record, nil
}

// ListByWallet returns the purchase records debited from a wallet.
func (s *Service) ListByWallet(ctx context.Context, walletID string) ([]store.Purchase, error) {
	return s.store.PurchasesByWallet(ctx, walletID)
}
