package ledger

import (
	"fmt"
	"math/big"
)

// Money is an amount in integer minor currency units. All pool and loan
// accounting runs on Money; binary floating point never touches values that
// participate in conservation checks.
type Money int64

// BPS is a rate in basis points (1/100 of a percent). 1200 = 12.00% APR.
type BPS uint32

const (
	// DaysPerYear is the divisor the on-chain contract uses for simple
	// interest. Not a calendar constant, a contract constant.
	DaysPerYear = 365
	// BPSDenominator converts basis points to a ratio.
	BPSDenominator = 10_000
)

var (
	bpsDenom = big.NewInt(BPSDenominator)
	yearDays = big.NewInt(DaysPerYear)
)

// Interest computes simple (non-compounding) interest, truncated to the minor
// unit:
//
//	interest = floor(principal * aprBPS * termDays / (10000 * 365))
//
// The intermediate product goes through big.Int so large principals cannot
// overflow int64. Truncation (Quo, not rounding) is required: the result must
// agree bit-for-bit with the on-chain computation.
func Interest(principal Money, aprBPS BPS, termDays int) (Money, error) {
	if principal < 0 {
		return 0, fmt.Errorf("ledger: negative principal %d", principal)
	}
	if termDays < 0 {
		return 0, fmt.Errorf("ledger: negative term %d", termDays)
	}
	n := new(big.Int).SetInt64(int64(principal))
	n.Mul(n, new(big.Int).SetUint64(uint64(aprBPS)))
	n.Mul(n, big.NewInt(int64(termDays)))
	n.Quo(n, new(big.Int).Mul(bpsDenom, yearDays))
	if !n.IsInt64() {
		return 0, fmt.Errorf("ledger: interest overflows minor units")
	}
	return Money(n.Int64()), nil
}

// TotalRepayable is principal plus simple interest for the given terms.
func TotalRepayable(principal Money, aprBPS BPS, termDays int) (Money, error) {
	interest, err := Interest(principal, aprBPS, termDays)
	if err != nil {
		return 0, err
	}
	return principal + interest, nil
}
