package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "lendpool/internal/domain/loan"
	"lendpool/pkg/id"
)

// openTestDB creates an in-memory sqlite DB with the full schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeLoan(loanID, borrowerID string) *domain.Loan {
	due := time.Now().UTC().AddDate(0, 0, 30)
	return &domain.Loan{
		LoanID:           loanID,
		BorrowerID:       borrowerID,
		Principal:        1000,
		TermDays:         30,
		APRBPS:           1200,
		State:            domain.StateCreated,
		DueDate:          &due,
		GraceDays:        7,
		InterestPortion:  9,
		PrincipalPortion: 1000,
		StateUpdatedAt:   time.Now().UTC(),
	}
}

func TestLoanRepo_CreateAndGetByLoanID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	loanID := id.NewID32()
	borrower := id.NewID32()

	l := makeLoan(loanID, borrower)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.LoanID != loanID || got.BorrowerID != borrower {
		t.Errorf("unexpected loan: %+v", got)
	}
	if got.TotalDue() != 1009 {
		t.Errorf("TotalDue = %d, want 1009", got.TotalDue())
	}
}

func TestLoanRepo_GetByLoanID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)

	_, err := repo.GetByLoanID(context.Background(), id.NewID32())
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("err = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestLoanRepo_SaveUpdatesState(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan(id.NewID32(), id.NewID32())
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	l.State = domain.StateFunded
	l.StateUpdatedAt = time.Now().UTC()
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByLoanID(ctx, l.LoanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.State != domain.StateFunded {
		t.Errorf("state = %s, want funded", got.State)
	}
}

func TestLoanRepo_GetActiveByBorrowerID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()
	borrower := id.NewID32()

	// A terminal loan must not count as active.
	closed := makeLoan(id.NewID32(), borrower)
	closed.State = domain.StateRepaid
	if err := repo.Create(ctx, closed); err != nil {
		t.Fatalf("Create closed: %v", err)
	}

	if _, err := repo.GetActiveByBorrowerID(ctx, borrower); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("terminal loan treated as active: err=%v", err)
	}

	open := makeLoan(id.NewID32(), borrower)
	if err := repo.Create(ctx, open); err != nil {
		t.Fatalf("Create open: %v", err)
	}

	got, err := repo.GetActiveByBorrowerID(ctx, borrower)
	if err != nil {
		t.Fatalf("GetActiveByBorrowerID: %v", err)
	}
	if got.LoanID != open.LoanID {
		t.Errorf("active loan = %s, want %s", got.LoanID, open.LoanID)
	}
}

func TestLoanRepo_ScheduleLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan(id.NewID32(), id.NewID32())
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	due := time.Now().UTC().AddDate(0, 0, 30)
	if err := repo.CreateSchedule(ctx, []domain.ScheduleLine{{
		LoanRef:       l.ID,
		InstallmentNo: 1,
		DueAt:         due,
		AmountDue:     1009,
		Status:        domain.SchedulePending,
	}}); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	line, err := repo.NextOpenScheduleLine(ctx, l.ID)
	if err != nil {
		t.Fatalf("NextOpenScheduleLine: %v", err)
	}
	line.Apply(500)
	if line.Status != domain.SchedulePartial {
		t.Fatalf("status = %s, want partial", line.Status)
	}
	if err := repo.SaveScheduleLine(ctx, line); err != nil {
		t.Fatalf("SaveScheduleLine: %v", err)
	}

	line, err = repo.NextOpenScheduleLine(ctx, l.ID)
	if err != nil {
		t.Fatalf("NextOpenScheduleLine (partial): %v", err)
	}
	line.Apply(509)
	if line.Status != domain.SchedulePaid {
		t.Fatalf("status = %s, want paid", line.Status)
	}
	if err := repo.SaveScheduleLine(ctx, line); err != nil {
		t.Fatalf("SaveScheduleLine: %v", err)
	}

	// Settled lines no longer show up as open.
	if _, err := repo.NextOpenScheduleLine(ctx, l.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("paid line still open: err=%v", err)
	}
}

func TestLoanRepo_RepaymentsByTxHash(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan(id.NewID32(), id.NewID32())
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rep := &domain.Repayment{
		RepaymentID: "3f1f18b6-0000-4000-8000-000000000001",
		LoanRef:     l.ID,
		LoanID:      l.LoanID,
		Amount:      500,
		ReceivedAt:  time.Now().UTC(),
		Method:      "telegram",
		TxHash:      "0xaaa",
	}
	if err := repo.CreateRepayment(ctx, rep); err != nil {
		t.Fatalf("CreateRepayment: %v", err)
	}

	got, err := repo.GetRepaymentByTxHash(ctx, "0xaaa")
	if err != nil {
		t.Fatalf("GetRepaymentByTxHash: %v", err)
	}
	if got.RepaymentID != rep.RepaymentID || got.Amount != 500 {
		t.Errorf("unexpected repayment: %+v", got)
	}

	list, err := repo.ListRepayments(ctx, l.ID)
	if err != nil {
		t.Fatalf("ListRepayments: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(repayments) = %d, want 1", len(list))
	}
}

func TestLoanRepo_EventsAndDisbursement(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	l := makeLoan(id.NewID32(), id.NewID32())
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i, name := range []string{"created", "funded", "funded"} {
		if err := repo.AppendEvent(ctx, &domain.Event{
			EventID: id.NewID32() + "-" + string(rune('a'+i)),
			LoanRef: l.ID,
			Name:    name,
		}); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}
	n, err := repo.CountEvents(ctx, l.ID, "funded")
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 2 {
		t.Errorf("funded events = %d, want 2", n)
	}

	now := time.Now().UTC()
	if err := repo.CreateDisbursement(ctx, &domain.Disbursement{
		LoanRef:     l.ID,
		Destination: l.BorrowerID,
		Amount:      l.Principal,
		Status:      domain.DisbursementConfirmed,
		ConfirmedAt: &now,
	}); err != nil {
		t.Fatalf("CreateDisbursement: %v", err)
	}
	d, err := repo.GetDisbursement(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetDisbursement: %v", err)
	}
	if d.Status != domain.DisbursementConfirmed || d.Amount != l.Principal {
		t.Errorf("unexpected disbursement: %+v", d)
	}
}
