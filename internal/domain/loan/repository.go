package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the enclosing transaction.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetActiveByBorrowerID(ctx context.Context, borrowerID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error

	CreateSchedule(ctx context.Context, lines []ScheduleLine) error
	NextOpenScheduleLine(ctx context.Context, loanRef uint64) (*ScheduleLine, error)
	SaveScheduleLine(ctx context.Context, s *ScheduleLine) error

	CreateRepayment(ctx context.Context, r *Repayment) error
	GetRepaymentByTxHash(ctx context.Context, txHash string) (*Repayment, error)
	ListRepayments(ctx context.Context, loanRef uint64) ([]Repayment, error)

	AppendEvent(ctx context.Context, e *Event) error
	CountEvents(ctx context.Context, loanRef uint64, name string) (int64, error)

	CreateDisbursement(ctx context.Context, d *Disbursement) error
	SaveDisbursement(ctx context.Context, d *Disbursement) error
	GetDisbursement(ctx context.Context, loanRef uint64) (*Disbursement, error)
}
