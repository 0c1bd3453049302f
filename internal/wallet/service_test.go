package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/lock"
	"github.com/vaultpay/vaultpay/internal/ratelimit"
	"github.com/vaultpay/vaultpay/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestService wires a service over the in-memory store. Capacity bounds
// the per-wallet admission window; most tests want it out of the way.
func newTestService(t *testing.T, capacity int) *Service {
	t.Helper()
	st := store.NewInMemory()
	limits := ratelimit.NewRegistry(ratelimit.Config{Capacity: capacity, Period: time.Minute})
	locks := lock.NewCoordinator(time.Second, time.Minute)
	t.Cleanup(func() {
		limits.Stop()
		locks.Stop()
	})
	return NewService(st, limits, locks)
}

func createWallet(t *testing.T, svc *Service, balance string) store.Wallet {
	t.Helper()
	w, err := svc.Create(context.Background(), CreateInput{
		ClientID:       uuid.NewString(),
		InitialBalance: dec(balance),
	})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func TestProcessOperationScenario(t *testing.T) {
	svc := newTestService(t, 1000)
	ctx := context.Background()
	w := createWallet(t, svc, "100.00")

	balance, err := svc.ProcessOperation(ctx, OperationInput{WalletID: w.ID, Operation: OperationWithdraw, Amount: dec("60.00")})
	if err != nil {
		t.Fatalf("withdraw 60: %v", err)
	}
	if !balance.Equal(dec("40.00")) {
		t.Fatalf("expected balance 40.00, got %s", balance)
	}

	if _, err := svc.ProcessOperation(ctx, OperationInput{WalletID: w.ID, Operation: OperationWithdraw, Amount: dec("60.00")}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	after, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("balance after failed withdraw: %v", err)
	}
	if !after.Amount.Equal(dec("40.00")) {
		t.Fatalf("failed withdraw must not change balance, got %s", after.Amount)
	}

	balance, err = svc.ProcessOperation(ctx, OperationInput{WalletID: w.ID, Operation: OperationDeposit, Amount: dec("10.00")})
	if err != nil {
		t.Fatalf("deposit 10: %v", err)
	}
	if !balance.Equal(dec("50.00")) {
		t.Fatalf("expected balance 50.00, got %s", balance)
	}
}

func TestProcessOperationUnknownWallet(t *testing.T) {
	svc := newTestService(t, 1000)

	_, err := svc.ProcessOperation(context.Background(), OperationInput{
		WalletID:  uuid.NewString(),
		Operation: OperationDeposit,
		Amount:    dec("5.00"),
	})
	if !errors.Is(err, store.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestProcessOperationRejectsNonPositiveAmounts(t *testing.T) {
	svc := newTestService(t, 1000)
	w := createWallet(t, svc, "10.00")

	for _, amount := range []string{"0", "-1.00"} {
		if _, err := svc.ProcessOperation(context.Background(), OperationInput{
			WalletID:  w.ID,
			Operation: OperationDeposit,
			Amount:    dec(amount),
		}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %s: expected invalid amount, got %v", amount, err)
		}
	}
}

func TestBalanceUnknownWallet(t *testing.T) {
	svc := newTestService(t, 1000)

	if _, err := svc.Balance(context.Background(), uuid.NewString()); !errors.Is(err, store.ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestBalanceReadIsIdempotent(t *testing.T) {
	svc := newTestService(t, 1000)
	ctx := context.Background()
	w := createWallet(t, svc, "42.42")

	first, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if !first.Amount.Equal(second.Amount) {
		t.Fatalf("reads disagree: %s vs %s", first.Amount, second.Amount)
	}
}

func TestConcurrentWithdrawalsDrainExactly(t *testing.T) {
	const k = 8
	svc := newTestService(t, 1000)
	ctx := context.Background()
	w := createWallet(t, svc, "100.00") // k * 12.50

	var wg sync.WaitGroup
	errCh := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessOperation(ctx, OperationInput{
				WalletID:  w.ID,
				Operation: OperationWithdraw,
				Amount:    dec("12.50"),
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Fatalf("withdrawal failed: %v", err)
		}
	}

	final, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("final balance: %v", err)
	}
	if !final.Amount.Equal(dec("0")) {
		t.Fatalf("expected zero balance, got %s", final.Amount)
	}
}

func TestConcurrentOverdraftRejectsExactlyOne(t *testing.T) {
	const k = 8
	svc := newTestService(t, 1000)
	ctx := context.Background()
	w := createWallet(t, svc, "100.00")

	var wg sync.WaitGroup
	errCh := make(chan error, k+1)
	for i := 0; i < k+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessOperation(ctx, OperationInput{
				WalletID:  w.ID,
				Operation: OperationWithdraw,
				Amount:    dec("12.50"),
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var rejections int
	for err := range errCh {
		switch {
		case err == nil:
		case errors.Is(err, ErrInsufficientFunds):
			rejections++
		default:
			t.Fatalf("unexpected failure: %v", err)
		}
	}
	if rejections != 1 {
		t.Fatalf("expected exactly one rejection, got %d", rejections)
	}

	final, err := svc.Balance(ctx, w.ID)
	if err != nil {
		t.Fatalf("final balance: %v", err)
	}
	if !final.Amount.Equal(dec("0")) {
		t.Fatalf("expected zero balance, got %s", final.Amount)
	}
}

func TestOperationsAreRateLimitedPerWallet(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	a := createWallet(t, svc, "100.00")
	b := createWallet(t, svc, "100.00")

	for i := 0; i < 3; i++ {
		if _, err := svc.ProcessOperation(ctx, OperationInput{WalletID: a.ID, Operation: OperationDeposit, Amount: dec("1.00")}); err != nil {
			t.Fatalf("admitted operation %d failed: %v", i, err)
		}
	}

	if _, err := svc.ProcessOperation(ctx, OperationInput{WalletID: a.ID, Operation: OperationDeposit, Amount: dec("1.00")}); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}

	// An untouched wallet has its own window.
	if _, err := svc.ProcessOperation(ctx, OperationInput{WalletID: b.ID, Operation: OperationDeposit, Amount: dec("1.00")}); err != nil {
		t.Fatalf("second wallet should be unaffected: %v", err)
	}
}
