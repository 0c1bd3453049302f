package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/lock"
	"github.com/vaultpay/vaultpay/internal/ratelimit"
	"github.com/vaultpay/vaultpay/internal/store"
)

var (
	// ErrInsufficientFunds occurs when a withdrawal exceeds the committed
	// balance. The wallet is left untouched.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount indicates a zero or negative operation amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownOperation indicates an unrecognised operation kind.
	ErrUnknownOperation = errors.New("unknown operation")
)

// Service applies balance mutations and reads under per-wallet admission
// control and exclusive access. All wallet state flows through here; there is
// no other mutation path.
type Service struct {
	store  store.Store
	limits *ratelimit.Registry
	locks  *lock.Coordinator
}

// NewService builds a wallet service instance.
func NewService(st store.Store, limits *ratelimit.Registry, locks *lock.Coordinator) *Service {
	return &Service{store: st, limits: limits, locks: locks}
}

// OperationInput captures a requested balance mutation.
type OperationInput struct {
	WalletID  string
	Operation Operation
	Amount    decimal.Decimal
}

// CreateInput captures data required to provision a wallet.
type CreateInput struct {
	ClientID       string
	InitialBalance decimal.Decimal
}

// Create provisions a wallet with an optional opening balance.
func (s *Service) Create(ctx context.Context, input CreateInput) (store.Wallet, error) {
	if _, err := uuid.Parse(input.ClientID); err != nil {
		return store.Wallet{}, err
	}
	if input.InitialBalance.IsNegative() {
		return store.Wallet{}, ErrInvalidAmount
	}

	w := store.Wallet{
		ID:        uuid.New().String(),
		ClientID:  input.ClientID,
		Balance:   input.InitialBalance,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return store.Wallet{}, err
	}
	return w, nil
}

// ProcessOperation applies a deposit or withdrawal and returns the new
// balance. The sequence is admission, then exclusive access, then
// load-validate-mutate-save; a failure at any step leaves the durable balance
// exactly as it was.
func (s *Service) ProcessOperation(ctx context.Context, input OperationInput) (decimal.Decimal, error) {
	if input.Operation != OperationDeposit && input.Operation != OperationWithdraw {
		return decimal.Decimal{}, ErrUnknownOperation
	}
	if !input.Amount.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	if err := s.limits.Acquire(ctx, input.WalletID); err != nil {
		return decimal.Decimal{}, err
	}

	var newBalance decimal.Decimal
	err := s.locks.Do(ctx, input.WalletID, func(ctx context.Context) error {
		w, err := s.store.Wallet(ctx, input.WalletID)
		if err != nil {
			return err
		}

		switch input.Operation {
		case OperationWithdraw:
			if w.Balance.LessThan(input.Amount) {
				return ErrInsufficientFunds
			}
			w.Balance = w.Balance.Sub(input.Amount)
		case OperationDeposit:
			w.Balance = w.Balance.Add(input.Amount)
		}

		if err := s.store.SaveWallet(ctx, w); err != nil {
			return err
		}
		newBalance = w.Balance
		return nil
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return newBalance, nil
}

// Balance reads the committed balance. The read takes the same admission and
// lock path as a mutation so it never observes a half-applied update.
func (s *Service) Balance(ctx context.Context, walletID string) (Balance, error) {
	if err := s.limits.Acquire(ctx, walletID); err != nil {
		return Balance{}, err
	}

	var balance Balance
	err := s.locks.Do(ctx, walletID, func(ctx context.Context) error {
		w, err := s.store.Wallet(ctx, walletID)
		if err != nil {
			return err
		}
		balance = Balance{WalletID: w.ID, Amount: w.Balance, AsOf: time.Now().UTC()}
		return nil
	})
	if err != nil {
		return Balance{}, err
	}
	return balance, nil
}
