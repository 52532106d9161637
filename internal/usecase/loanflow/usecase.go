// Package loanflow drives the loan lifecycle: created -> funded ->
// disbursed -> repaid/defaulted, with declined as the exit from created or
// from a funded loan whose disbursement never cleared. Chain confirmations
// precede off-chain transitions; all mutations on one loan serialize behind
// its advisory lock plus the locked row.
package loanflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lendpool/internal/chain"
	domain "lendpool/internal/domain/loan"
	"lendpool/internal/domain/token"
	"lendpool/internal/domain/uow"
	"lendpool/internal/ledger"
	"lendpool/internal/lock"
	"lendpool/internal/notify"
	"lendpool/internal/usecase/reconcile"
	"lendpool/internal/usecase/tier"
	"lendpool/pkg/id"
)

// ErrIneligible is the policy-gate failure: KYC/score/affordability said no.
// Surfaced to the caller, never retried.
var ErrIneligible = errors.New("borrower not eligible for requested amount")

const (
	maxTermDays = 365
	// repaymentTokenUnits is the reputation mint for a completed loan.
	// On-time repayment earns the full amount, late repayment half of it
	// (rounded down, floor of one unit).
	repaymentTokenUnits = 10
	defaultGraceDays    = 7
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Locker serializes operations per loan id. *lock.Locker satisfies it;
// tests substitute a stub.
type Locker interface {
	Acquire(ctx context.Context, key string) (*lock.Lease, error)
}

// Scorer extends the opaque scoring capability with the affordability
// estimate (average monthly net cash flow) derived from linked transactions.
type Scorer interface {
	tier.Scorer
	Affordability(ctx context.Context, userID string) (ledger.Money, error)
}

type Usecase struct {
	uow      uow.UnitOfWork
	adapter  *reconcile.Adapter
	locker   Locker
	scorer   Scorer
	notifier notify.Notifier
}

func NewUsecase(u uow.UnitOfWork, adapter *reconcile.Adapter, locker Locker, scorer Scorer, notifier notify.Notifier) *Usecase {
	return &Usecase{uow: u, adapter: adapter, locker: locker, scorer: scorer, notifier: notifier}
}

type ApplyInput struct {
	BorrowerID string       `json:"borrower_id"`
	Amount     ledger.Money `json:"amount"`
	TermDays   int          `json:"term_days"`
}

type LoanDTO struct {
	LoanID          string       `json:"loan_id"`
	BorrowerID      string       `json:"borrower_id"`
	Principal       ledger.Money `json:"principal"`
	TermDays        int          `json:"term_days"`
	APRBPS          ledger.BPS   `json:"apr_bps"`
	State           string       `json:"state"`
	InterestPortion ledger.Money `json:"interest_portion"`
	TotalDue        ledger.Money `json:"total_due"`
	RepaidAmount    ledger.Money `json:"repaid_amount"`
	Outstanding     ledger.Money `json:"outstanding"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	OnChainID       *uint64      `json:"onchain_loan_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

func toDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:          l.LoanID,
		BorrowerID:      l.BorrowerID,
		Principal:       l.Principal,
		TermDays:        l.TermDays,
		APRBPS:          l.APRBPS,
		State:           string(l.State),
		InterestPortion: l.InterestPortion,
		TotalDue:        l.TotalDue(),
		RepaidAmount:    l.RepaidAmount,
		Outstanding:     l.Outstanding(),
		DueDate:         l.DueDate,
		OnChainID:       l.OnChainID,
		CreatedAt:       l.CreatedAt,
	}
}

// translateNotFound maps the repository's record-not-found onto the domain
// sentinel so callers can tell a bad loan id from a real failure.
func translateNotFound(err error, loanID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: loan %s", domain.ErrNotFound, loanID)
	}
	return err
}

// Apply runs the eligibility gates and creates the loan row in Created
// state. Nothing touches the chain yet; that happens on Confirm.
func (u *Usecase) Apply(ctx context.Context, in ApplyInput) (*LoanDTO, error) {
	if !reHex32.MatchString(in.BorrowerID) {
		return nil, fmt.Errorf("%w: borrower id must be 32-char hex", domain.ErrValidation)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if in.TermDays < 1 || in.TermDays > maxTermDays {
		return nil, fmt.Errorf("%w: term must be 1..%d days", domain.ErrValidation, maxTermDays)
	}

	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		active, err := r.Loans.GetActiveByBorrowerID(ctx, in.BorrowerID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: loan %s is %s", domain.ErrActiveLoanExists, active.LoanID, active.State)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		info, err := u.tierFor(ctx, r, in.BorrowerID)
		if err != nil {
			return err
		}
		score, err := u.scorer.TrustScore(ctx, in.BorrowerID)
		if err != nil {
			return err
		}
		afford, err := u.scorer.Affordability(ctx, in.BorrowerID)
		if err != nil {
			return err
		}
		limit, apr := tier.CreditLimit(score, info, afford)
		if limit > info.MaxLoanCap {
			limit = info.MaxLoanCap
		}
		if limit <= 0 || in.Amount > limit {
			return fmt.Errorf("%w: limit=%d requested=%d tier=%s", ErrIneligible, limit, in.Amount, info.Name)
		}

		interest, err := ledger.Interest(in.Amount, apr, in.TermDays)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		due := time.Now().UTC().AddDate(0, 0, in.TermDays)
		l := &domain.Loan{
			LoanID:           id.NewID32(),
			BorrowerID:       in.BorrowerID,
			Principal:        in.Amount,
			TermDays:         in.TermDays,
			APRBPS:           apr,
			State:            domain.StateCreated,
			DueDate:          &due,
			GraceDays:        defaultGraceDays,
			InterestPortion:  interest,
			PrincipalPortion: in.Amount,
			StateUpdatedAt:   time.Now().UTC(),
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "created", fmt.Sprintf("principal=%d apr_bps=%d term_days=%d", l.Principal, l.APRBPS, l.TermDays)); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Notify(in.BorrowerID, "loan_created", map[string]any{"loan_id": dto.LoanID, "total_due": dto.TotalDue})
	return dto, nil
}

func (u *Usecase) tierFor(ctx context.Context, r uow.Repos, userID string) (tier.Info, error) {
	rules, err := r.Tokens.ListRules(ctx)
	if err != nil {
		return tier.Info{}, err
	}
	if len(rules) == 0 {
		rules = tier.DefaultRules
	}
	bal, err := r.Tokens.GetBalance(ctx, userID)
	switch {
	case err == nil:
		return tier.ForBalance(rules, bal.Balance), nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, token.ErrNotFound):
		return tier.ForBalance(rules, 0), nil
	}
	return tier.Info{}, err
}

// Confirm pushes an accepted offer through the on-chain create -> fund ->
// disburse sequence. Each off-chain transition commits only after its chain
// confirmation. A revert or exhausted retry at any step declines the loan;
// the borrower is never left silently stuck. A loan already funded (a prior
// attempt was interrupted before disbursal) resumes at the disburse step
// using its stored on-chain id.
func (u *Usecase) Confirm(ctx context.Context, loanID string) (*LoanDTO, error) {
	lease, err := u.locker.Acquire(ctx, "loan:"+loanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(ctx) }()

	var current *domain.Loan
	if err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateCreated && l.State != domain.StateFunded {
			return fmt.Errorf("%w: confirm requires created or funded, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		current = l
		return nil
	}); err != nil {
		return nil, translateNotFound(err, loanID)
	}

	var onChainID uint64
	if current.State == domain.StateFunded {
		if current.OnChainID == nil {
			return u.declineAfterChainFailure(ctx, loanID, fmt.Errorf("funded loan has no on-chain id"))
		}
		onChainID = *current.OnChainID
	} else {
		id, createRes, err := u.adapter.CreateLoan(ctx, current.BorrowerID, current.Principal, current.APRBPS, current.TermDays)
		if err != nil {
			return u.declineAfterChainFailure(ctx, loanID, err)
		}
		onChainID = id

		if _, err := u.adapter.MarkFunded(ctx, onChainID); err != nil {
			return u.declineAfterChainFailure(ctx, loanID, err)
		}
		if _, err := u.fund(ctx, loanID, onChainID, createRes.TxHash); err != nil {
			return nil, err
		}
	}

	if _, err := u.adapter.MarkDisbursed(ctx, onChainID); err != nil {
		return u.declineAfterChainFailure(ctx, loanID, err)
	}
	dto, err := u.disburse(ctx, loanID)
	if err != nil {
		return nil, err
	}
	u.adapter.ReconcilePoolTotals(ctx)
	return dto, nil
}

// fund applies the created -> funded transition after chain confirmation.
// Calling it on an already funded loan is a no-op returning current state.
func (u *Usecase) fund(ctx context.Context, loanID string, onChainID uint64, txHash string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State == domain.StateFunded {
			dto = toDTO(l)
			return nil
		}
		if !l.State.CanTransition(domain.StateFunded) {
			return fmt.Errorf("%w: fund requires created, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		if l.OnChainID == nil {
			l.OnChainID = &onChainID
		}
		l.State = domain.StateFunded
		l.StateUpdatedAt = time.Now().UTC()
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "funded", fmt.Sprintf("onchain_id=%d tx=%s", onChainID, txHash)); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Notify(dto.BorrowerID, "loan_funded", map[string]any{"loan_id": loanID, "onchain_id": onChainID})
	return dto, nil
}

// disburse applies funded -> disbursed after the chain confirmed the payout,
// records the disbursement and lays down the repayment schedule.
func (u *Usecase) disburse(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State == domain.StateDisbursed {
			dto = toDTO(l)
			return nil
		}
		if !l.State.CanTransition(domain.StateDisbursed) {
			return fmt.Errorf("%w: disburse requires funded, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		now := time.Now().UTC()
		l.State = domain.StateDisbursed
		l.DisbursedAt = &now
		l.StateUpdatedAt = now
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		due := now.AddDate(0, 0, l.TermDays)
		if l.DueDate != nil {
			due = *l.DueDate
		}
		if err := r.Loans.CreateSchedule(ctx, []domain.ScheduleLine{{
			LoanRef:       l.ID,
			InstallmentNo: 1,
			DueAt:         due,
			AmountDue:     l.TotalDue(),
			Status:        domain.SchedulePending,
		}}); err != nil {
			return err
		}
		// Mirror the principal leaving the pool; reconciliation then
		// verifies instead of correcting.
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		totals.TotalPool -= l.Principal
		if err := r.Pool.SaveTotals(ctx, totals); err != nil {
			return err
		}
		confirmed := now
		if err := r.Loans.CreateDisbursement(ctx, &domain.Disbursement{
			LoanRef:     l.ID,
			Destination: l.BorrowerID,
			Amount:      l.Principal,
			Status:      domain.DisbursementConfirmed,
			ConfirmedAt: &confirmed,
		}); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "disbursed", ""); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Notify(dto.BorrowerID, "loan_disbursed", map[string]any{"loan_id": loanID, "amount": dto.Principal})
	return dto, nil
}

func (u *Usecase) declineAfterChainFailure(ctx context.Context, loanID string, cause error) (*LoanDTO, error) {
	log.Printf("loanflow: loan=%s chain failure, declining: %v", loanID, cause)
	dto, declineErr := u.Decline(ctx, loanID, fmt.Sprintf("chain failure: %v", cause))
	if declineErr != nil {
		return nil, errors.Join(cause, declineErr)
	}
	return dto, cause
}

// Decline exits created -> declined, or funded -> declined when the
// disbursement never cleared on chain. Terminal, no token event.
func (u *Usecase) Decline(ctx context.Context, loanID, reason string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State == domain.StateDeclined {
			dto = toDTO(l)
			return nil
		}
		if !l.State.CanTransition(domain.StateDeclined) {
			return fmt.Errorf("%w: decline requires created or funded, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		l.State = domain.StateDeclined
		l.StateUpdatedAt = time.Now().UTC()
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "declined", reason); err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, translateNotFound(err, loanID)
	}
	u.notifier.Notify(dto.BorrowerID, "loan_declined", map[string]any{"loan_id": loanID, "reason": reason})
	return dto, nil
}

type RecordRepaymentInput struct {
	LoanID     string       `json:"loan_id"`
	Amount     ledger.Money `json:"amount"`
	TxRef      string       `json:"tx_ref"`
	Method     string       `json:"method"`
	ReceivedAt time.Time    `json:"received_at"`
}

type RepaymentDTO struct {
	RepaymentID string       `json:"repayment_id"`
	LoanID      string       `json:"loan_id"`
	Amount      ledger.Money `json:"amount"`
	ReceivedAt  time.Time    `json:"received_at"`
	LoanState   string       `json:"loan_state"`
	Outstanding ledger.Money `json:"outstanding"`
	OnTime      *bool        `json:"on_time,omitempty"`
}

// RecordRepayment confirms the repay on chain, then applies it off-chain:
// an immutable Repayment row, the schedule line, the running repaid amount,
// and, when the loan closes, exactly one reputation mint. Replays keyed by
// tx ref return the original result instead of double-applying.
func (u *Usecase) RecordRepayment(ctx context.Context, in RecordRepaymentInput) (*RepaymentDTO, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if in.ReceivedAt.IsZero() {
		in.ReceivedAt = time.Now().UTC()
	}
	if in.Method == "" {
		in.Method = "telegram"
	}

	lease, err := u.locker.Acquire(ctx, "loan:"+in.LoanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(ctx) }()

	// Pre-flight: replay detection, state gate and chain id, read-only.
	var (
		onChainID uint64
		replayed  *RepaymentDTO
	)
	if err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if in.TxRef != "" {
			existing, err := r.Loans.GetRepaymentByTxHash(ctx, in.TxRef)
			switch {
			case err == nil:
				// Retried confirmation: repayments apply at most once
				// per tx ref, so hand back the original result.
				replayed = &RepaymentDTO{
					RepaymentID: existing.RepaymentID,
					LoanID:      l.LoanID,
					Amount:      existing.Amount,
					ReceivedAt:  existing.ReceivedAt,
					LoanState:   string(l.State),
					Outstanding: l.Outstanding(),
				}
				return nil
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}
		if l.State != domain.StateDisbursed {
			return fmt.Errorf("%w: repay requires disbursed, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		if l.OnChainID == nil {
			return fmt.Errorf("%w: loan has no on-chain id", domain.ErrInvalidTransition)
		}
		onChainID = *l.OnChainID
		return nil
	}); err != nil {
		return nil, translateNotFound(err, in.LoanID)
	}
	if replayed != nil {
		return replayed, nil
	}

	res, err := u.adapter.MarkRepaid(ctx, onChainID, in.Amount)
	if err != nil {
		return nil, err
	}
	txRef := in.TxRef
	if txRef == "" {
		txRef = res.TxHash
	}

	var (
		dto       *RepaymentDTO
		completed bool
		onTime    bool
		borrower  string
	)
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State != domain.StateDisbursed {
			return fmt.Errorf("%w: repay requires disbursed, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		borrower = l.BorrowerID

		rep := &domain.Repayment{
			RepaymentID: uuid.NewString(),
			LoanRef:     l.ID,
			LoanID:      l.LoanID,
			Amount:      in.Amount,
			ReceivedAt:  in.ReceivedAt.UTC(),
			Method:      in.Method,
			TxHash:      txRef,
		}
		line, err := r.Loans.NextOpenScheduleLine(ctx, l.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if line != nil {
			line.Apply(in.Amount)
			// A post-grace payment that leaves the line open marks it
			// late; a fully covered line stays paid.
			if line.Status != domain.SchedulePaid && !l.OnTime(in.ReceivedAt) {
				line.Status = domain.ScheduleLate
			}
			if err := r.Loans.SaveScheduleLine(ctx, line); err != nil {
				return err
			}
			rep.ScheduleRef = &line.ID
		}
		if err := r.Loans.CreateRepayment(ctx, rep); err != nil {
			return err
		}

		// Mirror the repayment flowing back into the pool.
		totals, err := r.Pool.GetTotalsForUpdate(ctx)
		if err != nil {
			return err
		}
		totals.TotalPool += in.Amount
		if err := r.Pool.SaveTotals(ctx, totals); err != nil {
			return err
		}

		l.RepaidAmount += in.Amount
		if l.RepaidAmount >= l.TotalDue() {
			completed = true
			onTime = l.OnTime(in.ReceivedAt)
			l.State = domain.StateRepaid
			l.StateUpdatedAt = time.Now().UTC()
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "repayment", fmt.Sprintf("amount=%d tx=%s", in.Amount, txRef)); err != nil {
			return err
		}

		if completed {
			if err := u.appendEvent(ctx, r, l, "repaid", fmt.Sprintf("on_time=%t", onTime)); err != nil {
				return err
			}
			if err := u.mintForCompletion(ctx, r, l, onTime, txRef); err != nil {
				return err
			}
		}

		d := &RepaymentDTO{
			RepaymentID: rep.RepaymentID,
			LoanID:      l.LoanID,
			Amount:      rep.Amount,
			ReceivedAt:  rep.ReceivedAt,
			LoanState:   string(l.State),
			Outstanding: l.Outstanding(),
		}
		if completed {
			d.OnTime = &onTime
		}
		dto = d
		return nil
	})
	if err != nil {
		return nil, translateNotFound(err, in.LoanID)
	}

	u.adapter.ReconcilePoolTotals(ctx)
	if completed {
		u.notifier.Notify(borrower, "loan_repaid", map[string]any{"loan_id": in.LoanID, "on_time": onTime})
	} else {
		u.notifier.Notify(borrower, "repayment_received", map[string]any{"loan_id": in.LoanID, "amount": in.Amount, "outstanding": dto.Outstanding})
	}
	return dto, nil
}

// mintForCompletion emits the single reputation event for a closed loan.
func (u *Usecase) mintForCompletion(ctx context.Context, r uow.Repos, l *domain.Loan, onTime bool, txRef string) error {
	units := int64(repaymentTokenUnits)
	reason := "loan_repaid_on_time"
	if !onTime {
		units = units / 2
		if units < 1 {
			units = 1
		}
		reason = "loan_repaid_late"
	}
	return r.Tokens.AppendEvent(ctx, &token.Event{
		EventID: uuid.NewString(),
		UserID:  l.BorrowerID,
		Kind:    token.KindMint,
		Amount:  units,
		Reason:  reason,
		TxHash:  txRef,
	})
}

// MarkDefaulted exits disbursed -> defaulted, driven by the overdue
// detector. Idempotent; burns reputation on the first application only.
func (u *Usecase) MarkDefaulted(ctx context.Context, loanID string) (*LoanDTO, error) {
	lease, err := u.locker.Acquire(ctx, "loan:"+loanID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lease.Release(ctx) }()

	var onChainID *uint64
	if err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State == domain.StateDefaulted {
			return nil
		}
		if !l.State.CanTransition(domain.StateDefaulted) {
			return fmt.Errorf("%w: default requires disbursed, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		onChainID = l.OnChainID
		return nil
	}); err != nil {
		return nil, translateNotFound(err, loanID)
	}

	var txHash string
	if onChainID != nil {
		res, err := u.adapter.MarkDefaulted(ctx, *onChainID)
		if err != nil {
			var revert *chain.RevertError
			// The contract already holds the loan in Defaulted when a
			// retried confirmation replays; treat that as success.
			if !errors.As(err, &revert) {
				return nil, err
			}
		} else {
			txHash = res.TxHash
		}
	}

	var (
		dto      *LoanDTO
		borrower string
		changed  bool
	)
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
		if l.State == domain.StateDefaulted {
			dto = toDTO(l)
			return nil
		}
		if !l.State.CanTransition(domain.StateDefaulted) {
			return fmt.Errorf("%w: default requires disbursed, loan is %s", domain.ErrInvalidTransition, l.State)
		}
		l.State = domain.StateDefaulted
		l.StateUpdatedAt = time.Now().UTC()
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := u.appendEvent(ctx, r, l, "defaulted", ""); err != nil {
			return err
		}
		if err := r.Tokens.AppendEvent(ctx, &token.Event{
			EventID: uuid.NewString(),
			UserID:  l.BorrowerID,
			Kind:    token.KindBurn,
			Amount:  repaymentTokenUnits,
			Reason:  "loan_defaulted",
			TxHash:  txHash,
		}); err != nil {
			return err
		}
		borrower = l.BorrowerID
		changed = true
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		u.notifier.Notify(borrower, "loan_defaulted", map[string]any{"loan_id": loanID})
	}
	return dto, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, translateNotFound(err, loanID)
	}
	return dto, nil
}

type TierDTO struct {
	UserID      string       `json:"user_id"`
	Balance     int64        `json:"token_balance"`
	Tier        string       `json:"tier"`
	MaxLoanCap  ledger.Money `json:"max_loan_cap"`
	BaseAPRBPS  ledger.BPS   `json:"base_apr_bps"`
	CreditLimit ledger.Money `json:"credit_limit"`
}

// CurrentTier reports the terms the borrower's next application would get.
func (u *Usecase) CurrentTier(ctx context.Context, userID string) (*TierDTO, error) {
	if !reHex32.MatchString(userID) {
		return nil, fmt.Errorf("%w: user id must be 32-char hex", domain.ErrValidation)
	}
	var dto *TierDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		info, err := u.tierFor(ctx, r, userID)
		if err != nil {
			return err
		}
		var balance int64
		if bal, err := r.Tokens.GetBalance(ctx, userID); err == nil {
			balance = bal.Balance
		}
		score, err := u.scorer.TrustScore(ctx, userID)
		if err != nil {
			return err
		}
		afford, err := u.scorer.Affordability(ctx, userID)
		if err != nil {
			return err
		}
		limit, _ := tier.CreditLimit(score, info, afford)
		if limit > info.MaxLoanCap {
			limit = info.MaxLoanCap
		}
		dto = &TierDTO{
			UserID:      userID,
			Balance:     balance,
			Tier:        info.Name,
			MaxLoanCap:  info.MaxLoanCap,
			BaseAPRBPS:  info.BaseAPRBPS,
			CreditLimit: limit,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) appendEvent(ctx context.Context, r uow.Repos, l *domain.Loan, name, details string) error {
	return r.Loans.AppendEvent(ctx, &domain.Event{
		EventID: uuid.NewString(),
		LoanRef: l.ID,
		Name:    name,
		Details: details,
	})
}
