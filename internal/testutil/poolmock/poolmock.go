package poolmock

import (
	"context"

	"gorm.io/gorm"

	domain "lendpool/internal/domain/pool"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unfilled getters behave like an empty, freshly-bootstrapped pool.
type Repo struct {
	GetTotalsForUpdateFn  func(ctx context.Context) (*domain.Totals, error)
	SaveTotalsFn          func(ctx context.Context, t *domain.Totals) error
	GetAccountFn          func(ctx context.Context, lenderID string) (*domain.Account, error)
	GetAccountForUpdateFn func(ctx context.Context, lenderID string) (*domain.Account, error)
	SaveAccountFn         func(ctx context.Context, a *domain.Account) error
	SumPrincipalFn        func(ctx context.Context) (int64, error)
	CreateDepositFn       func(ctx context.Context, d *domain.Deposit) error
	CreateWithdrawalFn    func(ctx context.Context, w *domain.Withdrawal) error
	DepositExistsFn       func(ctx context.Context, txHash string) (bool, error)
	WithdrawalExistsFn    func(ctx context.Context, txHash string) (bool, error)
	CreateSnapshotFn      func(ctx context.Context, s *domain.Snapshot) error
}

func (m *Repo) GetTotalsForUpdate(ctx context.Context) (*domain.Totals, error) {
	if m.GetTotalsForUpdateFn != nil {
		return m.GetTotalsForUpdateFn(ctx)
	}
	return &domain.Totals{TotalShares: "0"}, nil
}

func (m *Repo) SaveTotals(ctx context.Context, t *domain.Totals) error {
	if m.SaveTotalsFn != nil {
		return m.SaveTotalsFn(ctx, t)
	}
	return nil
}

func (m *Repo) GetAccount(ctx context.Context, lenderID string) (*domain.Account, error) {
	if m.GetAccountFn != nil {
		return m.GetAccountFn(ctx, lenderID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) GetAccountForUpdate(ctx context.Context, lenderID string) (*domain.Account, error) {
	if m.GetAccountForUpdateFn != nil {
		return m.GetAccountForUpdateFn(ctx, lenderID)
	}
	return &domain.Account{LenderID: lenderID, Shares: "0"}, nil
}

func (m *Repo) SaveAccount(ctx context.Context, a *domain.Account) error {
	if m.SaveAccountFn != nil {
		return m.SaveAccountFn(ctx, a)
	}
	return nil
}

func (m *Repo) SumPrincipal(ctx context.Context) (int64, error) {
	if m.SumPrincipalFn != nil {
		return m.SumPrincipalFn(ctx)
	}
	return 0, nil
}

func (m *Repo) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	if m.CreateDepositFn != nil {
		return m.CreateDepositFn(ctx, d)
	}
	return nil
}

func (m *Repo) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	if m.CreateWithdrawalFn != nil {
		return m.CreateWithdrawalFn(ctx, w)
	}
	return nil
}

func (m *Repo) DepositExists(ctx context.Context, txHash string) (bool, error) {
	if m.DepositExistsFn != nil {
		return m.DepositExistsFn(ctx, txHash)
	}
	return false, nil
}

func (m *Repo) WithdrawalExists(ctx context.Context, txHash string) (bool, error) {
	if m.WithdrawalExistsFn != nil {
		return m.WithdrawalExistsFn(ctx, txHash)
	}
	return false, nil
}

func (m *Repo) CreateSnapshot(ctx context.Context, s *domain.Snapshot) error {
	if m.CreateSnapshotFn != nil {
		return m.CreateSnapshotFn(ctx, s)
	}
	return nil
}
