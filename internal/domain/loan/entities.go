package loan

import (
	"time"

	"gorm.io/gorm"

	"lendpool/internal/ledger"
)

type State string

const (
	StateCreated   State = "created"
	StateFunded    State = "funded"
	StateDisbursed State = "disbursed"
	StateRepaid    State = "repaid"
	StateDefaulted State = "defaulted"
	StateDeclined  State = "declined"
)

// Terminal reports whether no further transition can leave the state.
func (s State) Terminal() bool {
	switch s {
	case StateRepaid, StateDefaulted, StateDeclined:
		return true
	}
	return false
}

// CanTransition encodes the one-directional lifecycle graph:
// created -> funded -> disbursed -> repaid|defaulted, created -> declined.
// funded -> declined is the failure exit taken when the disbursement never
// clears on chain; a funded loan is never left without a way out.
func (s State) CanTransition(to State) bool {
	switch s {
	case StateCreated:
		return to == StateFunded || to == StateDeclined
	case StateFunded:
		return to == StateDisbursed || to == StateDeclined
	case StateDisbursed:
		return to == StateRepaid || to == StateDefaulted
	}
	return false
}

type Loan struct {
	ID         uint64       `gorm:"primaryKey;column:id" json:"-"`
	LoanID     string       `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	BorrowerID string       `gorm:"size:32;index:idx_loans_borrower_state" json:"borrower_id"`
	Principal  ledger.Money `gorm:"column:principal" json:"principal"`
	TermDays   int          `gorm:"column:term_days" json:"term_days"`
	APRBPS     ledger.BPS   `gorm:"column:apr_bps" json:"apr_bps"`
	State      State        `gorm:"size:16;index:idx_loans_borrower_state;default:'created'" json:"state"`

	// OnChainID is set exactly once, at or before the funded->disbursed
	// transition.
	OnChainID *uint64 `gorm:"column:onchain_loan_id;index" json:"onchain_loan_id,omitempty"`

	DisbursedAt *time.Time `gorm:"column:disbursed_at" json:"disbursed_at,omitempty"`
	DueDate     *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	GraceDays   int        `gorm:"column:grace_days;default:7" json:"grace_days"`

	// Denormalized accounting. RepaidAmount only grows, and only through
	// confirmed Repayment rows.
	RepaidAmount     ledger.Money `gorm:"column:repaid_amount;default:0" json:"repaid_amount"`
	InterestPortion  ledger.Money `gorm:"column:interest_portion;default:0" json:"interest_portion"`
	PrincipalPortion ledger.Money `gorm:"column:principal_portion;default:0" json:"principal_portion"`

	StateUpdatedAt time.Time      `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// TotalDue is the full amount that closes the loan.
func (l *Loan) TotalDue() ledger.Money { return l.Principal + l.InterestPortion }

// Outstanding is the remaining balance; never negative even after overpayment.
func (l *Loan) Outstanding() ledger.Money {
	if rem := l.TotalDue() - l.RepaidAmount; rem > 0 {
		return rem
	}
	return 0
}

// OnTime classifies a repayment instant against due date plus grace.
func (l *Loan) OnTime(receivedAt time.Time) bool {
	if l.DueDate == nil {
		return true
	}
	grace := l.GraceDays
	if grace < 0 {
		grace = 0
	}
	return !receivedAt.After(l.DueDate.AddDate(0, 0, grace))
}

type ScheduleStatus string

const (
	SchedulePending ScheduleStatus = "pending"
	SchedulePartial ScheduleStatus = "partial"
	SchedulePaid    ScheduleStatus = "paid"
	ScheduleLate    ScheduleStatus = "late"
)

// ScheduleLine is one expected installment. AmountPaid may exceed AmountDue
// (overpayment spills to loan-level accounting); Status tracks paid vs due.
type ScheduleLine struct {
	ID            uint64         `gorm:"primaryKey;column:id" json:"-"`
	LoanRef       uint64         `gorm:"column:loan_ref;uniqueIndex:ux_schedule_loan_no" json:"-"`
	InstallmentNo int            `gorm:"column:installment_no;uniqueIndex:ux_schedule_loan_no" json:"installment_no"`
	DueAt         time.Time      `gorm:"column:due_at;index" json:"due_at"`
	AmountDue     ledger.Money   `gorm:"column:amount_due" json:"amount_due"`
	AmountPaid    ledger.Money   `gorm:"column:amount_paid;default:0" json:"amount_paid"`
	Status        ScheduleStatus `gorm:"size:16;default:'pending'" json:"status"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"-"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"-"`
}

func (ScheduleLine) TableName() string { return "repayment_schedule" }

// Apply credits a payment against the line and refreshes its status.
func (s *ScheduleLine) Apply(amount ledger.Money) {
	s.AmountPaid += amount
	if s.AmountPaid >= s.AmountDue {
		s.Status = SchedulePaid
	} else {
		s.Status = SchedulePartial
	}
}

// Repayment is an immutable payment event: created once per confirmed
// on-chain repay, never updated or deleted.
type Repayment struct {
	RepaymentID string       `gorm:"primaryKey;size:36;column:repayment_id" json:"repayment_id"`
	LoanRef     uint64       `gorm:"column:loan_ref;index" json:"-"`
	LoanID      string       `gorm:"size:32;index" json:"loan_id"`
	ScheduleRef *uint64      `gorm:"column:schedule_ref" json:"-"`
	Amount      ledger.Money `gorm:"column:amount" json:"amount"`
	ReceivedAt  time.Time    `gorm:"column:received_at" json:"received_at"`
	Method      string       `gorm:"size:32;default:'telegram'" json:"method"`
	TxHash      string       `gorm:"size:128;index" json:"tx_hash,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (Repayment) TableName() string { return "repayments" }

// Event is a lifecycle audit row appended on every transition.
type Event struct {
	EventID   string    `gorm:"primaryKey;size:36;column:event_id" json:"event_id"`
	LoanRef   uint64    `gorm:"column:loan_ref;index" json:"-"`
	Name      string    `gorm:"size:32;index" json:"name"`
	Details   string    `gorm:"type:text" json:"details,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Event) TableName() string { return "loan_events" }

type DisbursementStatus string

const (
	DisbursementPending   DisbursementStatus = "pending"
	DisbursementSent      DisbursementStatus = "sent"
	DisbursementConfirmed DisbursementStatus = "confirmed"
	DisbursementFailed    DisbursementStatus = "failed"
)

// Disbursement is the outbound transfer record, one per loan.
type Disbursement struct {
	ID          uint64             `gorm:"primaryKey;column:id" json:"-"`
	LoanRef     uint64             `gorm:"column:loan_ref;uniqueIndex" json:"-"`
	Destination string             `gorm:"size:64" json:"destination"`
	Amount      ledger.Money       `gorm:"column:amount" json:"amount"`
	Status      DisbursementStatus `gorm:"size:16;default:'pending';index" json:"status"`
	TxRef       string             `gorm:"size:128;index" json:"tx_ref,omitempty"`
	CreatedAt   time.Time          `gorm:"autoCreateTime" json:"created_at"`
	ConfirmedAt *time.Time         `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
}

func (Disbursement) TableName() string { return "disbursements" }
