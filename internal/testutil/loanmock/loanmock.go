package loanmock

import (
	"context"

	"gorm.io/gorm"

	domain "lendpool/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only fill in the function fields a test needs; unfilled getters
// behave like an empty table.
type Repo struct {
	CreateFn                func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn           func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn  func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetActiveByBorrowerIDFn func(ctx context.Context, borrowerID string) (*domain.Loan, error)
	SaveFn                  func(ctx context.Context, l *domain.Loan) error

	CreateScheduleFn       func(ctx context.Context, lines []domain.ScheduleLine) error
	NextOpenScheduleLineFn func(ctx context.Context, loanRef uint64) (*domain.ScheduleLine, error)
	SaveScheduleLineFn     func(ctx context.Context, s *domain.ScheduleLine) error

	CreateRepaymentFn      func(ctx context.Context, r *domain.Repayment) error
	GetRepaymentByTxHashFn func(ctx context.Context, txHash string) (*domain.Repayment, error)
	ListRepaymentsFn       func(ctx context.Context, loanRef uint64) ([]domain.Repayment, error)

	AppendEventFn func(ctx context.Context, e *domain.Event) error
	CountEventsFn func(ctx context.Context, loanRef uint64, name string) (int64, error)

	CreateDisbursementFn func(ctx context.Context, d *domain.Disbursement) error
	SaveDisbursementFn   func(ctx context.Context, d *domain.Disbursement) error
	GetDisbursementFn    func(ctx context.Context, loanRef uint64) (*domain.Disbursement, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) GetActiveByBorrowerID(ctx context.Context, borrowerID string) (*domain.Loan, error) {
	if m.GetActiveByBorrowerIDFn != nil {
		return m.GetActiveByBorrowerIDFn(ctx, borrowerID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) CreateSchedule(ctx context.Context, lines []domain.ScheduleLine) error {
	if m.CreateScheduleFn != nil {
		return m.CreateScheduleFn(ctx, lines)
	}
	return nil
}

func (m *Repo) NextOpenScheduleLine(ctx context.Context, loanRef uint64) (*domain.ScheduleLine, error) {
	if m.NextOpenScheduleLineFn != nil {
		return m.NextOpenScheduleLineFn(ctx, loanRef)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) SaveScheduleLine(ctx context.Context, s *domain.ScheduleLine) error {
	if m.SaveScheduleLineFn != nil {
		return m.SaveScheduleLineFn(ctx, s)
	}
	return nil
}

func (m *Repo) CreateRepayment(ctx context.Context, r *domain.Repayment) error {
	if m.CreateRepaymentFn != nil {
		return m.CreateRepaymentFn(ctx, r)
	}
	return nil
}

func (m *Repo) GetRepaymentByTxHash(ctx context.Context, txHash string) (*domain.Repayment, error) {
	if m.GetRepaymentByTxHashFn != nil {
		return m.GetRepaymentByTxHashFn(ctx, txHash)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) ListRepayments(ctx context.Context, loanRef uint64) ([]domain.Repayment, error) {
	if m.ListRepaymentsFn != nil {
		return m.ListRepaymentsFn(ctx, loanRef)
	}
	return nil, nil
}

func (m *Repo) AppendEvent(ctx context.Context, e *domain.Event) error {
	if m.AppendEventFn != nil {
		return m.AppendEventFn(ctx, e)
	}
	return nil
}

func (m *Repo) CountEvents(ctx context.Context, loanRef uint64, name string) (int64, error) {
	if m.CountEventsFn != nil {
		return m.CountEventsFn(ctx, loanRef, name)
	}
	return 0, nil
}

func (m *Repo) CreateDisbursement(ctx context.Context, d *domain.Disbursement) error {
	if m.CreateDisbursementFn != nil {
		return m.CreateDisbursementFn(ctx, d)
	}
	return nil
}

func (m *Repo) SaveDisbursement(ctx context.Context, d *domain.Disbursement) error {
	if m.SaveDisbursementFn != nil {
		return m.SaveDisbursementFn(ctx, d)
	}
	return nil
}

func (m *Repo) GetDisbursement(ctx context.Context, loanRef uint64) (*domain.Disbursement, error) {
	if m.GetDisbursementFn != nil {
		return m.GetDisbursementFn(ctx, loanRef)
	}
	return nil, gorm.ErrRecordNotFound
}
