package uow

import (
	"context"

	"lendpool/internal/domain/loan"
	"lendpool/internal/domain/pool"
	"lendpool/internal/domain/token"
)

type Repos struct {
	Loans  loan.Repository
	Pool   pool.Repository
	Tokens token.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
