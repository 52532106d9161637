package poolflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lendpool/internal/adapter/repository/mysql"
	"lendpool/internal/chain"
	"lendpool/internal/domain/pool"
	"lendpool/internal/domain/uow"
	"lendpool/internal/ledger"
	"lendpool/internal/lock"
	"lendpool/internal/notify"
	"lendpool/internal/usecase/reconcile"
	"lendpool/pkg/id"
)

type stubLocker struct{}

func (stubLocker) Acquire(context.Context, string) (*lock.Lease, error) {
	return &lock.Lease{}, nil
}

func newStack(t *testing.T) (*Usecase, *chain.SimContract, uow.UnitOfWork) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, mysql.AutoMigrate(db))

	guow := mysql.NewGormUoW(db)
	sim := chain.NewSimContract()
	adapter := reconcile.NewAdapter(sim, guow)
	uc := NewUsecase(guow, adapter, stubLocker{}, notify.Noop{})
	return uc, sim, guow
}

func readTotals(t *testing.T, guow uow.UnitOfWork) *pool.Totals {
	t.Helper()
	var out *pool.Totals
	err := guow.WithinTx(context.Background(), func(r uow.Repos) error {
		totals, err := r.Pool.GetTotalsForUpdate(context.Background())
		if err != nil {
			return err
		}
		out = totals
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestDeposit_Validation(t *testing.T) {
	uc, _, _ := newStack(t)
	ctx := context.Background()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: "nope", Amount: 100})
	require.ErrorIs(t, err, pool.ErrValidation)

	_, err = uc.Deposit(ctx, DepositInput{LenderID: id.NewID32(), Amount: 0})
	require.ErrorIs(t, err, pool.ErrValidation)
}

func TestDeposit_FirstMintsOneToOne(t *testing.T) {
	uc, sim, guow := newStack(t)
	ctx := context.Background()
	lender := id.NewID32()

	dto, err := uc.Deposit(ctx, DepositInput{LenderID: lender, Amount: 2000})
	require.NoError(t, err)
	assert.Equal(t, "2000", dto.SharesIssued)
	assert.Equal(t, ledger.Money(2000), dto.TotalPool)
	assert.Equal(t, "2000", dto.TotalShares)

	// Chain and mirror agree.
	chainPool, _ := sim.TotalPool(ctx)
	assert.Equal(t, ledger.Money(2000), chainPool)
	totals := readTotals(t, guow)
	assert.Equal(t, ledger.Money(2000), totals.TotalPool)
	assert.Equal(t, "2000", totals.TotalShares)
}

func TestDeposit_SecondLenderAtSamePrice(t *testing.T) {
	uc, _, guow := newStack(t)
	ctx := context.Background()
	alice, bob := id.NewID32(), id.NewID32()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: alice, Amount: 2000})
	require.NoError(t, err)
	dto, err := uc.Deposit(ctx, DepositInput{LenderID: bob, Amount: 3000})
	require.NoError(t, err)

	assert.Equal(t, "3000", dto.SharesIssued)
	totals := readTotals(t, guow)
	assert.Equal(t, ledger.Money(5000), totals.TotalPool)
	assert.Equal(t, "5000", totals.TotalShares)

	// Lender accounts track their own principal and shares.
	err = guow.WithinTx(ctx, func(r uow.Repos) error {
		acc, err := r.Pool.GetAccount(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, ledger.Money(3000), acc.Principal)
		assert.Equal(t, "3000", acc.Shares)
		return nil
	})
	require.NoError(t, err)
}

func TestWithdraw_Validation(t *testing.T) {
	uc, _, _ := newStack(t)
	ctx := context.Background()

	_, err := uc.Withdraw(ctx, WithdrawInput{LenderID: "nope", Shares: "10"})
	require.ErrorIs(t, err, pool.ErrValidation)

	_, err = uc.Withdraw(ctx, WithdrawInput{LenderID: id.NewID32(), Shares: "zero"})
	require.ErrorIs(t, err, pool.ErrValidation)

	_, err = uc.Withdraw(ctx, WithdrawInput{LenderID: id.NewID32(), Shares: "-5"})
	require.ErrorIs(t, err, pool.ErrValidation)
}

func TestWithdraw_UnknownLender(t *testing.T) {
	uc, _, _ := newStack(t)
	_, err := uc.Withdraw(context.Background(), WithdrawInput{LenderID: id.NewID32(), Shares: "10"})
	require.ErrorIs(t, err, pool.ErrNotFound)
}

func TestWithdraw_InsufficientSharesMutatesNothing(t *testing.T) {
	uc, sim, guow := newStack(t)
	ctx := context.Background()
	lender := id.NewID32()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: lender, Amount: 1000})
	require.NoError(t, err)

	_, err = uc.Withdraw(ctx, WithdrawInput{LenderID: lender, Shares: "1001"})
	require.ErrorIs(t, err, pool.ErrInsufficientShares)

	// The guard fired before any chain write or mirror mutation.
	chainPool, _ := sim.TotalPool(ctx)
	assert.Equal(t, ledger.Money(1000), chainPool)
	totals := readTotals(t, guow)
	assert.Equal(t, ledger.Money(1000), totals.TotalPool)
	assert.Equal(t, "1000", totals.TotalShares)
}

func TestWithdraw_LiquidityGuardBlocksBeforeChain(t *testing.T) {
	uc, sim, guow := newStack(t)
	ctx := context.Background()
	lender := id.NewID32()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: lender, Amount: 1000})
	require.NoError(t, err)

	// Shrink the mirrored supply so the lender's shares price above the
	// whole pool. The guard must reject before any chain write.
	err = guow.WithinTx(ctx, func(r uow.Repos) error {
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		require.NoError(t, err)
		totals.TotalShares = "100"
		return r.Pool.SaveTotals(ctx, totals)
	})
	require.NoError(t, err)

	_, err = uc.Withdraw(ctx, WithdrawInput{LenderID: lender, Shares: "1000"})
	require.ErrorIs(t, err, pool.ErrInsufficientLiquidity)

	chainPool, _ := sim.TotalPool(ctx)
	assert.Equal(t, ledger.Money(1000), chainPool, "chain untouched")
}

func TestWithdraw_RoundTrip(t *testing.T) {
	uc, _, guow := newStack(t)
	ctx := context.Background()
	lender := id.NewID32()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: lender, Amount: 2000})
	require.NoError(t, err)

	dto, err := uc.Withdraw(ctx, WithdrawInput{LenderID: lender, Shares: "500"})
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(500), dto.Payout)
	assert.Equal(t, ledger.Money(500), dto.PrincipalOut)
	assert.Zero(t, dto.InterestOut)

	// Full exit empties both sides of the invariant together.
	dto, err = uc.Withdraw(ctx, WithdrawInput{LenderID: lender, Shares: "1500"})
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(1500), dto.Payout)

	totals := readTotals(t, guow)
	assert.Zero(t, totals.TotalPool)
	assert.Equal(t, "0", totals.TotalShares)
}

func TestWithdraw_InterestSplitAfterGrowth(t *testing.T) {
	uc, sim, _ := newStack(t)
	ctx := context.Background()
	lender := id.NewID32()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: lender, Amount: 1000})
	require.NoError(t, err)

	// Grow the pool the way repayments do: value rises, supply does not.
	loanID, _, err := sim.CreateLoan(ctx, id.NewID32(), 500, 1200, 30)
	require.NoError(t, err)
	_, err = sim.MarkFunded(ctx, loanID)
	require.NoError(t, err)
	_, err = sim.MarkDisbursed(ctx, loanID)
	require.NoError(t, err)
	_, err = sim.MarkRepaid(ctx, loanID, 509)
	require.NoError(t, err)

	// Full exit: 1000 shares redeem the whole 1009 pool.
	dto, err := uc.Withdraw(ctx, WithdrawInput{LenderID: lender, Shares: "1000"})
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(1009), dto.Payout)
	assert.Equal(t, ledger.Money(1000), dto.PrincipalOut)
	assert.Equal(t, ledger.Money(9), dto.InterestOut)
}

func TestSnapshot(t *testing.T) {
	uc, _, _ := newStack(t)
	ctx := context.Background()

	_, err := uc.Deposit(ctx, DepositInput{LenderID: id.NewID32(), Amount: 4000})
	require.NoError(t, err)

	snap, err := uc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Money(4000), snap.TotalPool)
	assert.Equal(t, ledger.Money(4000), snap.TotalPrincipal)
	assert.Equal(t, "0", snap.AccInterestPerShare, "no growth yet")
}
