// Package reconcile wraps contract writes with bounded retry on transient
// failures and, after every confirmation, re-reads the chain's authoritative
// state to realign the off-chain mirror. The mirror is always moved toward
// the chain, never the reverse.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lendpool/internal/chain"
	"lendpool/internal/domain/uow"
	"lendpool/internal/ledger"
	"lendpool/internal/metrics"
)

// ErrRetriesExhausted ends a write whose transient failures outlasted the
// retry budget. Callers escalate it as a reconciliation fault.
var ErrRetriesExhausted = errors.New("reconcile: chain retries exhausted")

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
	// mismatchTolerance is the largest mirror/chain divergence, in minor
	// units, attributable to in-flight operations rather than a fault.
	mismatchTolerance = 1
)

type Adapter struct {
	contract chain.Contract
	uow      uow.UnitOfWork
	backoff  time.Duration
}

func NewAdapter(contract chain.Contract, u uow.UnitOfWork) *Adapter {
	return &Adapter{contract: contract, uow: u, backoff: retryBackoff}
}

// withRetry runs a contract write up to maxAttempts times. Reverts surface
// immediately; only transient errors are retried.
func (a *Adapter) withRetry(ctx context.Context, op string, fn func() error) error {
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var revert *chain.RevertError
		if errors.As(err, &revert) {
			metrics.ChainReverts.WithLabelValues(op).Inc()
			log.Printf("reconcile: op=%s reverted: %v", op, err)
			return err
		}
		var transient *chain.TransientError
		if !errors.As(err, &transient) {
			return err
		}
		last = err
		metrics.ChainRetries.WithLabelValues(op).Inc()
		log.Printf("reconcile: op=%s transient failure (attempt %d/%d): %v", op, attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.backoff):
			}
		}
	}
	return fmt.Errorf("%w: op=%s: %v", ErrRetriesExhausted, op, last)
}

// CreateLoan issues the on-chain create and returns the contract's loan id.
func (a *Adapter) CreateLoan(ctx context.Context, borrower string, principal ledger.Money, aprBPS ledger.BPS, termDays int) (uint64, chain.TxResult, error) {
	var (
		onChainID uint64
		res       chain.TxResult
	)
	err := a.withRetry(ctx, "createLoan", func() error {
		var err error
		onChainID, res, err = a.contract.CreateLoan(ctx, borrower, principal, aprBPS, termDays)
		return err
	})
	return onChainID, res, err
}

func (a *Adapter) MarkFunded(ctx context.Context, onChainID uint64) (chain.TxResult, error) {
	var res chain.TxResult
	err := a.withRetry(ctx, "markFunded", func() error {
		var err error
		res, err = a.contract.MarkFunded(ctx, onChainID)
		return err
	})
	return res, err
}

func (a *Adapter) MarkDisbursed(ctx context.Context, onChainID uint64) (chain.TxResult, error) {
	var res chain.TxResult
	err := a.withRetry(ctx, "markDisbursed", func() error {
		var err error
		res, err = a.contract.MarkDisbursed(ctx, onChainID)
		return err
	})
	return res, err
}

func (a *Adapter) MarkRepaid(ctx context.Context, onChainID uint64, amount ledger.Money) (chain.TxResult, error) {
	var res chain.TxResult
	err := a.withRetry(ctx, "markRepaid", func() error {
		var err error
		res, err = a.contract.MarkRepaid(ctx, onChainID, amount)
		return err
	})
	return res, err
}

func (a *Adapter) MarkDefaulted(ctx context.Context, onChainID uint64) (chain.TxResult, error) {
	var res chain.TxResult
	err := a.withRetry(ctx, "markDefaulted", func() error {
		var err error
		res, err = a.contract.MarkDefaulted(ctx, onChainID)
		return err
	})
	return res, err
}

func (a *Adapter) Deposit(ctx context.Context, lender string, amount ledger.Money) (chain.TxResult, error) {
	var res chain.TxResult
	err := a.withRetry(ctx, "deposit", func() error {
		var err error
		res, err = a.contract.Deposit(ctx, lender, amount)
		return err
	})
	return res, err
}

func (a *Adapter) Withdraw(ctx context.Context, lender string, shares ledger.Shares) (ledger.Money, chain.TxResult, error) {
	var (
		payout ledger.Money
		res    chain.TxResult
	)
	err := a.withRetry(ctx, "withdraw", func() error {
		var err error
		payout, res, err = a.contract.Withdraw(ctx, lender, shares)
		return err
	})
	return payout, res, err
}

// LoanState reads the authoritative loan record.
func (a *Adapter) LoanState(ctx context.Context, onChainID uint64) (chain.LoanView, error) {
	return a.contract.Loan(ctx, onChainID)
}

// ReconcilePoolTotals re-reads the chain's pool totals and realigns the
// mirror row. A divergence beyond tolerance is a reconciliation fault: it is
// logged and counted, and the mirror is still corrected to the chain value.
func (a *Adapter) ReconcilePoolTotals(ctx context.Context) {
	chainPool, err := a.contract.TotalPool(ctx)
	if err != nil {
		log.Printf("reconcile: totalPool read failed: %v", err)
		return
	}
	chainShares, err := a.contract.TotalShares(ctx)
	if err != nil {
		log.Printf("reconcile: totalShares read failed: %v", err)
		return
	}

	err = a.uow.WithinTx(ctx, func(r uow.Repos) error {
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		poolDiff := int64(totals.TotalPool - chainPool)
		if poolDiff < 0 {
			poolDiff = -poolDiff
		}
		if poolDiff > mismatchTolerance {
			metrics.ReconciliationFaults.WithLabelValues("total_pool").Inc()
			log.Printf("reconcile: FAULT total_pool mirror=%d chain=%d (mirror corrected)", totals.TotalPool, chainPool)
		}
		mirrorShares := totals.ShareSupply().Big()
		if mirrorShares.Cmp(chainShares) != 0 {
			metrics.ReconciliationFaults.WithLabelValues("total_shares").Inc()
			log.Printf("reconcile: FAULT total_shares mirror=%s chain=%s (mirror corrected)", mirrorShares, chainShares)
		}
		totals.TotalPool = chainPool
		totals.TotalShares = chainShares.String()
		return r.Pool.SaveTotals(ctx, totals)
	})
	if err != nil {
		log.Printf("reconcile: totals mirror update failed: %v", err)
	}
}
