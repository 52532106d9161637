// Package poolflow is the pooled-liquidity accounting engine: deposits mint
// shares at the pre-deposit share price, withdrawals burn shares for a
// proportional payout. The on-chain contract is authoritative; the mirror
// here is realigned after every confirmed write.
package poolflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lendpool/internal/domain/pool"
	"lendpool/internal/domain/uow"
	"lendpool/internal/ledger"
	"lendpool/internal/lock"
	"lendpool/internal/notify"
	"lendpool/internal/usecase/reconcile"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

type Locker interface {
	Acquire(ctx context.Context, key string) (*lock.Lease, error)
}

type Usecase struct {
	uow      uow.UnitOfWork
	adapter  *reconcile.Adapter
	locker   Locker
	notifier notify.Notifier
}

func NewUsecase(u uow.UnitOfWork, adapter *reconcile.Adapter, locker Locker, notifier notify.Notifier) *Usecase {
	return &Usecase{uow: u, adapter: adapter, locker: locker, notifier: notifier}
}

type DepositInput struct {
	LenderID string       `json:"lender_id"`
	Amount   ledger.Money `json:"amount"`
}

type SharesIssuedDTO struct {
	LenderID     string       `json:"lender_id"`
	Amount       ledger.Money `json:"amount"`
	SharesIssued string       `json:"shares_issued"`
	TotalPool    ledger.Money `json:"total_pool"`
	TotalShares  string       `json:"total_shares"`
	TxHash       string       `json:"tx_hash"`
}

// Deposit confirms the on-chain deposit, then mints the mirror's shares at
// the pre-deposit price. Deposits apply at most once per tx hash.
func (u *Usecase) Deposit(ctx context.Context, in DepositInput) (*SharesIssuedDTO, error) {
	if !reHex32.MatchString(in.LenderID) {
		return nil, fmt.Errorf("%w: lender id must be 32-char hex", pool.ErrValidation)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", pool.ErrValidation)
	}

	lease, err := u.locker.Acquire(ctx, "pool:"+in.LenderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(ctx) }()

	res, err := u.adapter.Deposit(ctx, in.LenderID, in.Amount)
	if err != nil {
		return nil, err
	}

	var dto *SharesIssuedDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		exists, err := r.Pool.DepositExists(ctx, res.TxHash)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", pool.ErrDuplicateTx, res.TxHash)
		}

		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		supply := totals.ShareSupply()
		minted, err := ledger.SharesForDeposit(in.Amount, totals.TotalPool, supply)
		if err != nil {
			return fmt.Errorf("pool mirror: %w", err)
		}
		totals.TotalPool += in.Amount
		totals.TotalShares = supply.Add(minted).String()
		if err := r.Pool.SaveTotals(ctx, totals); err != nil {
			return err
		}

		acc, err := r.Pool.GetAccountForUpdate(ctx, in.LenderID)
		if err != nil {
			return err
		}
		acc.Principal += in.Amount
		acc.Shares = acc.ShareBalance().Add(minted).String()
		if err := r.Pool.SaveAccount(ctx, acc); err != nil {
			return err
		}

		if err := r.Pool.CreateDeposit(ctx, &pool.Deposit{
			DepositID: uuid.NewString(),
			LenderID:  in.LenderID,
			Amount:    in.Amount,
			Shares:    minted.String(),
			TxHash:    res.TxHash,
		}); err != nil {
			return err
		}
		dto = &SharesIssuedDTO{
			LenderID:     in.LenderID,
			Amount:       in.Amount,
			SharesIssued: minted.String(),
			TotalPool:    totals.TotalPool,
			TotalShares:  totals.TotalShares,
			TxHash:       res.TxHash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.adapter.ReconcilePoolTotals(ctx)
	u.notifier.Notify(in.LenderID, "pool_deposit", map[string]any{"amount": in.Amount, "shares": dto.SharesIssued})
	return dto, nil
}

type WithdrawInput struct {
	LenderID string `json:"lender_id"`
	Shares   string `json:"shares"`
}

type PayoutDTO struct {
	LenderID     string       `json:"lender_id"`
	SharesBurned string       `json:"shares_burned"`
	Payout       ledger.Money `json:"payout"`
	PrincipalOut ledger.Money `json:"principal_out"`
	InterestOut  ledger.Money `json:"interest_out"`
	TotalPool    ledger.Money `json:"total_pool"`
	TotalShares  string       `json:"total_shares"`
	TxHash       string       `json:"tx_hash"`
}

// Withdraw burns shares for their proportional payout. The liquidity guard
// rejects, before anything mutates, a redemption worth more than the pool
// holds. On the lender's mirror the recorded principal decrements first and
// clamps at zero; the remainder is accounted as interest out.
func (u *Usecase) Withdraw(ctx context.Context, in WithdrawInput) (*PayoutDTO, error) {
	if !reHex32.MatchString(in.LenderID) {
		return nil, fmt.Errorf("%w: lender id must be 32-char hex", pool.ErrValidation)
	}
	shares, ok := ledger.ParseShares(in.Shares)
	if !ok || shares.Sign() <= 0 {
		return nil, fmt.Errorf("%w: shares must be a positive integer", pool.ErrValidation)
	}

	lease, err := u.locker.Acquire(ctx, "pool:"+in.LenderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(ctx) }()

	// Guard against the mirror before touching the chain: no state is
	// mutated when the request cannot possibly clear.
	if err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		acc, err := r.Pool.GetAccount(ctx, in.LenderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: lender %s", pool.ErrNotFound, in.LenderID)
			}
			return err
		}
		if acc.ShareBalance().Cmp(shares) < 0 {
			return fmt.Errorf("%w: have %s, want %s", pool.ErrInsufficientShares, acc.Shares, in.Shares)
		}
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		payout, err := ledger.PayoutForShares(shares, totals.TotalPool, totals.ShareSupply())
		if err != nil {
			return fmt.Errorf("pool mirror: %w", err)
		}
		if payout > totals.TotalPool {
			return fmt.Errorf("%w: payout=%d pool=%d", pool.ErrInsufficientLiquidity, payout, totals.TotalPool)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	payout, res, err := u.adapter.Withdraw(ctx, in.LenderID, shares)
	if err != nil {
		return nil, err
	}

	var dto *PayoutDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		exists, err := r.Pool.WithdrawalExists(ctx, res.TxHash)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", pool.ErrDuplicateTx, res.TxHash)
		}

		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		totals.TotalPool -= payout
		totals.TotalShares = totals.ShareSupply().Sub(shares).String()
		if err := r.Pool.SaveTotals(ctx, totals); err != nil {
			return err
		}

		acc, err := r.Pool.GetAccountForUpdate(ctx, in.LenderID)
		if err != nil {
			return err
		}
		principalOut := payout
		if acc.Principal < principalOut {
			principalOut = acc.Principal
		}
		interestOut := payout - principalOut
		acc.Principal -= principalOut
		acc.AccruedInterest -= interestOut
		if acc.AccruedInterest < 0 {
			acc.AccruedInterest = 0
		}
		acc.Shares = acc.ShareBalance().Sub(shares).String()
		if err := r.Pool.SaveAccount(ctx, acc); err != nil {
			return err
		}

		if err := r.Pool.CreateWithdrawal(ctx, &pool.Withdrawal{
			WithdrawalID: uuid.NewString(),
			LenderID:     in.LenderID,
			PrincipalOut: principalOut,
			InterestOut:  interestOut,
			Shares:       shares.String(),
			TxHash:       res.TxHash,
		}); err != nil {
			return err
		}
		dto = &PayoutDTO{
			LenderID:     in.LenderID,
			SharesBurned: shares.String(),
			Payout:       payout,
			PrincipalOut: principalOut,
			InterestOut:  interestOut,
			TotalPool:    totals.TotalPool,
			TotalShares:  totals.TotalShares,
			TxHash:       res.TxHash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.adapter.ReconcilePoolTotals(ctx)
	u.notifier.Notify(in.LenderID, "pool_withdrawal", map[string]any{"payout": payout, "shares": in.Shares})
	return dto, nil
}

// Snapshot writes the periodic accounting checkpoint: pool totals, the
// system-wide contributed principal, and accumulated interest per share as
// an 18-decimal fixed-point ratio.
func (u *Usecase) Snapshot(ctx context.Context) (*pool.Snapshot, error) {
	var snap *pool.Snapshot
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		principal, err := r.Pool.SumPrincipal(ctx)
		if err != nil {
			return err
		}
		snap = &pool.Snapshot{
			At:                  time.Now().UTC(),
			TotalPool:           totals.TotalPool,
			TotalPrincipal:      ledger.Money(principal),
			AccInterestPerShare: accInterestPerShare(totals.TotalPool, ledger.Money(principal), totals.ShareSupply()),
		}
		return r.Pool.CreateSnapshot(ctx, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// accInterestPerShare is (pool - principal) * 1e18 / shares, floored; "0"
// when no shares are outstanding or the pool has not outgrown principal.
func accInterestPerShare(totalPool, totalPrincipal ledger.Money, supply ledger.Shares) string {
	growth := int64(totalPool - totalPrincipal)
	if growth <= 0 || supply.Sign() == 0 {
		return "0"
	}
	n := new(big.Int).SetInt64(growth)
	n.Mul(n, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	n.Quo(n, supply.Big())
	return n.String()
}

// StartSnapshotScheduler checkpoints the pool on a fixed interval until the
// context ends.
func (u *Usecase) StartSnapshotScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := u.Snapshot(ctx); err != nil {
				log.Printf("poolflow: snapshot failed: %v", err)
			}
		}
	}
}
