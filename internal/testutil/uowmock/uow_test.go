package uowmock

import (
	"context"
	"errors"
	"testing"

	"lendpool/internal/domain/loan"
	"lendpool/internal/domain/uow"
	"lendpool/internal/testutil/loanmock"
	"lendpool/internal/testutil/poolmock"
	"lendpool/internal/testutil/tokenmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	pools := &poolmock.Repo{}
	tokens := &tokenmock.Repo{}
	repos := uow.Repos{Loans: loans, Pool: pools, Tokens: tokens}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Pool != pools || r.Tokens != tokens {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Unfilled_ReturnsUnimplemented(t *testing.T) {
	m := New()
	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx: want errUnimplemented, got %v", err)
	}
	if err := m.WithinLoanTx(context.Background(), "x", func(uow.Repos, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx: want errUnimplemented, got %v", err)
	}
}

func TestPassthrough_WithinLoanTx_ResolvesLoan(t *testing.T) {
	want := &loan.Loan{ID: 7, LoanID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", State: loan.StateCreated}
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, loanID string) (*loan.Loan, error) {
			if loanID != want.LoanID {
				t.Fatalf("loanID = %q, want %q", loanID, want.LoanID)
			}
			return want, nil
		},
	}
	m := Passthrough(uow.Repos{Loans: loans, Pool: &poolmock.Repo{}, Tokens: &tokenmock.Repo{}})

	err := m.WithinLoanTx(context.Background(), want.LoanID, func(r uow.Repos, l *loan.Loan) error {
		if l != want {
			t.Fatalf("loan not forwarded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
}
