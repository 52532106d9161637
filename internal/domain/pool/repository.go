package pool

import "context"

type Repository interface {
	// GetTotalsForUpdate locks the shared totals row; callers mutate and
	// Save within the same transaction.
	GetTotalsForUpdate(ctx context.Context) (*Totals, error)
	SaveTotals(ctx context.Context, t *Totals) error

	GetAccount(ctx context.Context, lenderID string) (*Account, error)
	// GetAccountForUpdate locks (creating if absent) the lender's account
	// row for the enclosing transaction.
	GetAccountForUpdate(ctx context.Context, lenderID string) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	SumPrincipal(ctx context.Context) (int64, error)

	CreateDeposit(ctx context.Context, d *Deposit) error
	CreateWithdrawal(ctx context.Context, w *Withdrawal) error
	DepositExists(ctx context.Context, txHash string) (bool, error)
	WithdrawalExists(ctx context.Context, txHash string) (bool, error)

	CreateSnapshot(ctx context.Context, s *Snapshot) error
}
