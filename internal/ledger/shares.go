package ledger

import (
	"errors"
	"math/big"
)

var (
	// ErrNoSharePrice reports a deposit against a pool whose value is zero
	// while shares remain outstanding (everything lent out). The mint price
	// is undefined; the contract reverts rather than guess.
	ErrNoSharePrice = errors.New("ledger: share price undefined")
	// ErrPayoutOverflow reports a redemption whose value exceeds the minor
	// unit range.
	ErrPayoutOverflow = errors.New("ledger: payout overflows minor units")
)

// Shares is a pool share quantity. Shares are integers in the same scale the
// on-chain contract mints them (one share unit per minor unit at bootstrap);
// they are kept as big.Int because share balances mirror 18-decimal chain
// values and must never round through a float.
type Shares struct{ v *big.Int }

// NewShares wraps an integer share count.
func NewShares(n int64) Shares { return Shares{v: big.NewInt(n)} }

// SharesFromBig wraps an existing big.Int, copying it.
func SharesFromBig(n *big.Int) Shares {
	if n == nil {
		return Shares{v: new(big.Int)}
	}
	return Shares{v: new(big.Int).Set(n)}
}

func (s Shares) Big() *big.Int {
	if s.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(s.v)
}

func (s Shares) Sign() int {
	if s.v == nil {
		return 0
	}
	return s.v.Sign()
}

func (s Shares) Cmp(o Shares) int  { return s.Big().Cmp(o.Big()) }
func (s Shares) String() string    { return s.Big().String() }
func (s Shares) Add(o Shares) Shares {
	return Shares{v: new(big.Int).Add(s.Big(), o.Big())}
}
func (s Shares) Sub(o Shares) Shares {
	return Shares{v: new(big.Int).Sub(s.Big(), o.Big())}
}

// ParseShares decodes the decimal string form used for persistence. Returns
// false if the string is not a valid integer.
func ParseShares(s string) (Shares, bool) {
	if s == "" {
		return Shares{v: new(big.Int)}, true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Shares{}, false
	}
	return Shares{v: v}, true
}

// SharesForDeposit computes the shares minted for a deposit at the
// pre-deposit share price:
//
//	totalShares == 0: amount (1:1 bootstrap)
//	otherwise:        floor(amount * totalShares / totalPool)
//
// Floor division matches the contract's integer mint. A fully-lent-out pool
// (totalPool == 0 with shares outstanding) has no mint price and returns
// ErrNoSharePrice.
func SharesForDeposit(amount Money, totalPool Money, totalShares Shares) (Shares, error) {
	if amount <= 0 {
		return NewShares(0), nil
	}
	if totalShares.Sign() == 0 {
		return NewShares(int64(amount)), nil
	}
	if totalPool <= 0 {
		return Shares{}, ErrNoSharePrice
	}
	n := new(big.Int).SetInt64(int64(amount))
	n.Mul(n, totalShares.Big())
	n.Quo(n, big.NewInt(int64(totalPool)))
	return Shares{v: n}, nil
}

// PayoutForShares computes the redemption value of a share quantity:
//
//	floor(shares * totalPool / totalShares)
//
// Redeeming every outstanding share pays out the whole pool exactly, so the
// no-shares-implies-no-value invariant survives full exits.
func PayoutForShares(shares Shares, totalPool Money, totalShares Shares) (Money, error) {
	if shares.Sign() <= 0 || totalShares.Sign() == 0 {
		return 0, nil
	}
	n := new(big.Int).Mul(shares.Big(), big.NewInt(int64(totalPool)))
	n.Quo(n, totalShares.Big())
	if !n.IsInt64() {
		return 0, ErrPayoutOverflow
	}
	return Money(n.Int64()), nil
}
