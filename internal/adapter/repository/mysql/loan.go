package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	loanDomain "lendpool/internal/domain/loan"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

// GetActiveByBorrowerID returns the borrower's most recent non-terminal loan.
func (r *LoanRepository) GetActiveByBorrowerID(ctx context.Context, borrowerID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("borrower_id = ? AND state IN ?", borrowerID, []loanDomain.State{
			loanDomain.StateCreated, loanDomain.StateFunded, loanDomain.StateDisbursed,
		}).
		Order("state_updated_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) CreateSchedule(ctx context.Context, lines []loanDomain.ScheduleLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// NextOpenScheduleLine finds the earliest installment that is not settled.
func (r *LoanRepository) NextOpenScheduleLine(ctx context.Context, loanRef uint64) (*loanDomain.ScheduleLine, error) {
	var out loanDomain.ScheduleLine
	res := r.db.WithContext(ctx).
		Where("loan_ref = ? AND status IN ?", loanRef, []loanDomain.ScheduleStatus{
			loanDomain.SchedulePending, loanDomain.SchedulePartial, loanDomain.ScheduleLate,
		}).
		Order("installment_no ASC").
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) SaveScheduleLine(ctx context.Context, s *loanDomain.ScheduleLine) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *LoanRepository) CreateRepayment(ctx context.Context, p *loanDomain.Repayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *LoanRepository) GetRepaymentByTxHash(ctx context.Context, txHash string) (*loanDomain.Repayment, error) {
	var out loanDomain.Repayment
	res := r.db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanRef uint64) ([]loanDomain.Repayment, error) {
	var out []loanDomain.Repayment
	res := r.db.WithContext(ctx).
		Where("loan_ref = ?", loanRef).
		Order("received_at ASC, repayment_id ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) AppendEvent(ctx context.Context, e *loanDomain.Event) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LoanRepository) CountEvents(ctx context.Context, loanRef uint64, name string) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&loanDomain.Event{}).
		Where("loan_ref = ? AND name = ?", loanRef, name).
		Count(&n)
	return n, res.Error
}

func (r *LoanRepository) CreateDisbursement(ctx context.Context, d *loanDomain.Disbursement) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *LoanRepository) SaveDisbursement(ctx context.Context, d *loanDomain.Disbursement) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *LoanRepository) GetDisbursement(ctx context.Context, loanRef uint64) (*loanDomain.Disbursement, error) {
	var out loanDomain.Disbursement
	res := r.db.WithContext(ctx).Where("loan_ref = ?", loanRef).First(&out)
	return &out, res.Error
}
