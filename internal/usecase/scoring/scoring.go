// Package scoring supplies the credit-score and affordability inputs the
// eligibility gates consume. The production scorer lives in a separate
// service; this package holds the in-process implementations.
package scoring

import (
	"context"

	"lendpool/internal/ledger"
)

// Static returns the same score and affordability for every user. It backs
// local runs and environments where the scoring service is not deployed.
type Static struct {
	Score      int
	MonthlyNet ledger.Money
}

func NewStatic() *Static {
	return &Static{Score: 70, MonthlyNet: 500}
}

func (s *Static) TrustScore(ctx context.Context, userID string) (int, error) {
	return s.Score, nil
}

// Affordability is the average monthly net cash flow in minor units.
func (s *Static) Affordability(ctx context.Context, userID string) (ledger.Money, error) {
	return s.MonthlyNet, nil
}
