// Package tier maps reputation-token balances and trust scores to loan
// terms. Everything here is a pure function over its inputs.
package tier

import (
	"context"

	"lendpool/internal/domain/token"
	"lendpool/internal/ledger"
)

// Scorer is the opaque credit-scoring capability. Score is 0..100; the
// factors behind it are not interpreted here.
type Scorer interface {
	TrustScore(ctx context.Context, userID string) (int, error)
}

type Info struct {
	Name       string       `json:"tier"`
	MaxLoanCap ledger.Money `json:"max_loan_cap"`
	BaseAPRBPS ledger.BPS   `json:"base_apr_bps"`
}

// DefaultRules is the seed tier table. Ordered highest min-balance first;
// evaluation is an ordered scan, first match wins.
var DefaultRules = []token.TierRule{
	{Name: "Excellent", MinBalance: 201, MaxLoanCap: 7500, BaseAPRBPS: 1500, SortOrder: 0},
	{Name: "Good", MinBalance: 121, MaxLoanCap: 5000, BaseAPRBPS: 2000, SortOrder: 1},
	{Name: "New", MinBalance: 100, MaxLoanCap: 2000, BaseAPRBPS: 2500, SortOrder: 2},
	{Name: "Medium Risk", MinBalance: 20, MaxLoanCap: 1500, BaseAPRBPS: 3000, SortOrder: 3},
	{Name: "High Risk", MinBalance: 0, MaxLoanCap: 500, BaseAPRBPS: 3500, SortOrder: 4},
}

// ForBalance scans rules in order and returns the first tier whose
// MinBalance the reputation balance meets. Rules must be pre-sorted by
// priority; overlapping brackets resolve to the earlier row.
func ForBalance(rules []token.TierRule, balance int64) Info {
	for _, r := range rules {
		if balance >= r.MinBalance {
			return Info{
				Name:       r.Name,
				MaxLoanCap: ledger.Money(r.MaxLoanCap),
				BaseAPRBPS: ledger.BPS(r.BaseAPRBPS),
			}
		}
	}
	return Info{Name: "Unknown"}
}

// trustScoreCap gates the limit by scorecard output.
func trustScoreCap(score int) ledger.Money {
	switch {
	case score >= 80:
		return 2000
	case score >= 60:
		return 1500
	case score >= 40:
		return 1000
	default:
		return 500
	}
}

// CreditLimit combines the trust-score gate with the affordability gate
// (3x average monthly net cash flow) and takes the APR from the token tier.
// Both gates must pass: a zero from either input (unverified KYC, missing
// consent, no cash flow) forces a zero limit.
func CreditLimit(trustScore int, t Info, affordability ledger.Money) (ledger.Money, ledger.BPS) {
	if trustScore <= 0 || affordability <= 0 {
		return 0, t.BaseAPRBPS
	}
	limit := trustScoreCap(trustScore)
	if afford := 3 * affordability; afford < limit {
		limit = afford
	}
	return limit, t.BaseAPRBPS
}
