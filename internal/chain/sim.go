package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"lendpool/internal/ledger"
)

// SimContract is an in-memory Contract running the same integer arithmetic
// as the deployed loan-system contract. It backs tests and local runs, and
// can inject transient failures and reverts to exercise retry paths.
type SimContract struct {
	mu sync.Mutex

	totalPool   ledger.Money
	totalShares *big.Int
	shares      map[string]*big.Int

	nextID uint64
	loans  map[uint64]*LoanView

	txSeq uint64

	// TransientEvery injects a TransientError on every Nth write when > 0.
	TransientEvery int
	// TransientNext fails the next N writes with a TransientError.
	TransientNext int
	writeCount    int
	// RevertNext forces the next write to revert with the given reason.
	RevertNext string
}

func NewSimContract() *SimContract {
	return &SimContract{
		totalShares: new(big.Int),
		shares:      make(map[string]*big.Int),
		nextID:      1,
		loans:       make(map[uint64]*LoanView),
	}
}

func (s *SimContract) nextTx() TxResult {
	s.txSeq++
	return TxResult{
		TxHash:      fmt.Sprintf("0xsim%016x", s.txSeq),
		BlockNumber: s.txSeq,
		GasUsed:     21_000,
	}
}

func (s *SimContract) gate(op string) error {
	if s.RevertNext != "" {
		reason := s.RevertNext
		s.RevertNext = ""
		return &RevertError{Op: op, Reason: reason}
	}
	if s.TransientNext > 0 {
		s.TransientNext--
		return &TransientError{Op: op, Err: fmt.Errorf("connection reset")}
	}
	s.writeCount++
	if s.TransientEvery > 0 && s.writeCount%s.TransientEvery == 0 {
		return &TransientError{Op: op, Err: fmt.Errorf("nonce too low")}
	}
	return nil
}

func (s *SimContract) CreateLoan(_ context.Context, borrower string, principal ledger.Money, aprBPS ledger.BPS, termDays int) (uint64, TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate("createLoan"); err != nil {
		return 0, TxResult{}, err
	}
	if principal <= 0 {
		return 0, TxResult{}, &RevertError{Op: "createLoan", Reason: "principal must be positive"}
	}
	id := s.nextID
	s.nextID++
	s.loans[id] = &LoanView{
		ID:        id,
		Borrower:  borrower,
		Principal: principal,
		APRBPS:    aprBPS,
		TermDays:  termDays,
		State:     LoanCreated,
	}
	return id, s.nextTx(), nil
}

func (s *SimContract) transition(op string, loanID uint64, from, to LoanState) (TxResult, error) {
	if err := s.gate(op); err != nil {
		return TxResult{}, err
	}
	l, ok := s.loans[loanID]
	if !ok {
		return TxResult{}, &RevertError{Op: op, Reason: "unknown loan"}
	}
	// Idempotent confirm: repeating a transition already taken succeeds
	// without effect, matching the contract.
	if l.State == to {
		return s.nextTx(), nil
	}
	if l.State != from {
		return TxResult{}, &RevertError{Op: op, Reason: fmt.Sprintf("loan in state %s", l.State)}
	}
	l.State = to
	return s.nextTx(), nil
}

func (s *SimContract) MarkFunded(_ context.Context, loanID uint64) (TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition("markFunded", loanID, LoanCreated, LoanFunded)
}

func (s *SimContract) MarkDisbursed(_ context.Context, loanID uint64) (TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	wasFunded := ok && l.State == LoanFunded
	if wasFunded && l.Principal > s.totalPool {
		return TxResult{}, &RevertError{Op: "markDisbursed", Reason: "insufficient pool liquidity"}
	}
	res, err := s.transition("markDisbursed", loanID, LoanFunded, LoanDisbursed)
	if err != nil {
		return res, err
	}
	if wasFunded {
		s.totalPool -= l.Principal
	}
	return res, nil
}

func (s *SimContract) MarkRepaid(_ context.Context, loanID uint64, amount ledger.Money) (TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate("markRepaid"); err != nil {
		return TxResult{}, err
	}
	l, ok := s.loans[loanID]
	if !ok {
		return TxResult{}, &RevertError{Op: "markRepaid", Reason: "unknown loan"}
	}
	if l.State != LoanDisbursed {
		return TxResult{}, &RevertError{Op: "markRepaid", Reason: fmt.Sprintf("loan in state %s", l.State)}
	}
	if amount <= 0 {
		return TxResult{}, &RevertError{Op: "markRepaid", Reason: "amount must be positive"}
	}
	l.Repaid += amount
	s.totalPool += amount
	interest, _ := ledger.Interest(l.Principal, l.APRBPS, l.TermDays)
	if l.Repaid >= l.Principal+interest {
		l.State = LoanRepaid
	}
	return s.nextTx(), nil
}

func (s *SimContract) MarkDefaulted(_ context.Context, loanID uint64) (TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition("markDefaulted", loanID, LoanDisbursed, LoanDefaulted)
}

func (s *SimContract) Deposit(_ context.Context, lender string, amount ledger.Money) (TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate("deposit"); err != nil {
		return TxResult{}, err
	}
	if amount <= 0 {
		return TxResult{}, &RevertError{Op: "deposit", Reason: "amount must be positive"}
	}
	minted, err := ledger.SharesForDeposit(amount, s.totalPool, ledger.SharesFromBig(s.totalShares))
	if err != nil {
		// Everything lent out: no mint price until repayments restore
		// pool value.
		return TxResult{}, &RevertError{Op: "deposit", Reason: "share price undefined"}
	}
	s.totalPool += amount
	s.totalShares.Add(s.totalShares, minted.Big())
	cur, ok := s.shares[lender]
	if !ok {
		cur = new(big.Int)
		s.shares[lender] = cur
	}
	cur.Add(cur, minted.Big())
	return s.nextTx(), nil
}

func (s *SimContract) Withdraw(_ context.Context, lender string, shares ledger.Shares) (ledger.Money, TxResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.gate("withdraw"); err != nil {
		return 0, TxResult{}, err
	}
	if shares.Sign() <= 0 {
		return 0, TxResult{}, &RevertError{Op: "withdraw", Reason: "shares must be positive"}
	}
	cur, ok := s.shares[lender]
	if !ok || cur.Cmp(shares.Big()) < 0 {
		return 0, TxResult{}, &RevertError{Op: "withdraw", Reason: "insufficient shares"}
	}
	payout, err := ledger.PayoutForShares(shares, s.totalPool, ledger.SharesFromBig(s.totalShares))
	if err != nil {
		return 0, TxResult{}, &RevertError{Op: "withdraw", Reason: "payout out of range"}
	}
	if payout > s.totalPool {
		return 0, TxResult{}, &RevertError{Op: "withdraw", Reason: "insufficient pool liquidity"}
	}
	cur.Sub(cur, shares.Big())
	s.totalShares.Sub(s.totalShares, shares.Big())
	s.totalPool -= payout
	return payout, s.nextTx(), nil
}

func (s *SimContract) TotalPool(context.Context) (ledger.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPool, nil
}

func (s *SimContract) TotalShares(context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.totalShares), nil
}

func (s *SimContract) SharesOf(_ context.Context, lender string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.shares[lender]; ok {
		return new(big.Int).Set(cur), nil
	}
	return new(big.Int), nil
}

func (s *SimContract) Loan(_ context.Context, loanID uint64) (LoanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok {
		return LoanView{}, fmt.Errorf("chain: unknown loan %d", loanID)
	}
	return *l, nil
}
