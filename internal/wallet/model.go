package wallet

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Operation names a balance mutation kind.
type Operation string

const (
	// OperationDeposit credits the wallet.
	OperationDeposit Operation = "DEPOSIT"
	// OperationWithdraw debits the wallet, subject to the funds check.
	OperationWithdraw Operation = "WITHDRAW"
)

// ParseOperation maps request text onto an Operation.
func ParseOperation(s string) (Operation, error) {
	switch Operation(strings.ToUpper(strings.TrimSpace(s))) {
	case OperationDeposit:
		return OperationDeposit, nil
	case OperationWithdraw:
		return OperationWithdraw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Balance is a point-in-time view of a wallet's committed funds.
type Balance struct {
	WalletID string
	Amount   decimal.Decimal
	AsOf     time.Time
}
