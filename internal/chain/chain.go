// Package chain defines the capability interface the core consumes for the
// on-chain loan-system contract. The contract is the source of truth for
// pool totals and loan state; RPC plumbing behind this interface is out of
// scope.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"lendpool/internal/ledger"
)

type LoanState uint8

const (
	LoanCreated LoanState = iota
	LoanFunded
	LoanDisbursed
	LoanRepaid
	LoanDefaulted
)

func (s LoanState) String() string {
	switch s {
	case LoanCreated:
		return "Created"
	case LoanFunded:
		return "Funded"
	case LoanDisbursed:
		return "Disbursed"
	case LoanRepaid:
		return "Repaid"
	case LoanDefaulted:
		return "Defaulted"
	}
	return "Unknown"
}

// TxResult is the outcome of a confirmed write.
type TxResult struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// LoanView is the contract's record of a loan.
type LoanView struct {
	ID        uint64
	Borrower  string
	Principal ledger.Money
	APRBPS    ledger.BPS
	TermDays  int
	State     LoanState
	Repaid    ledger.Money
}

// RevertError marks a transaction that executed and reverted. Non-retryable;
// the off-chain state must be left untouched.
type RevertError struct {
	Op     string
	Reason string
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("chain: %s reverted: %s", e.Op, e.Reason)
}

// TransientError marks nonce conflicts, congestion and RPC unavailability.
// Retryable with bounded attempts.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("chain: %s transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Contract is the write/read surface of the on-chain loan system. Every
// write blocks until confirmation and returns either a TxResult or a typed
// error (*RevertError / *TransientError).
type Contract interface {
	CreateLoan(ctx context.Context, borrower string, principal ledger.Money, aprBPS ledger.BPS, termDays int) (uint64, TxResult, error)
	MarkFunded(ctx context.Context, loanID uint64) (TxResult, error)
	MarkDisbursed(ctx context.Context, loanID uint64) (TxResult, error)
	MarkRepaid(ctx context.Context, loanID uint64, amount ledger.Money) (TxResult, error)
	MarkDefaulted(ctx context.Context, loanID uint64) (TxResult, error)

	Deposit(ctx context.Context, lender string, amount ledger.Money) (TxResult, error)
	Withdraw(ctx context.Context, lender string, shares ledger.Shares) (ledger.Money, TxResult, error)

	TotalPool(ctx context.Context) (ledger.Money, error)
	TotalShares(ctx context.Context) (*big.Int, error)
	SharesOf(ctx context.Context, lender string) (*big.Int, error)
	Loan(ctx context.Context, loanID uint64) (LoanView, error)
}
