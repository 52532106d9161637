package pool

import (
	"errors"
	"time"

	"lendpool/internal/ledger"
)

var (
	ErrNotFound   = errors.New("pool account not found")
	ErrValidation = errors.New("invalid pool input")
	// ErrInsufficientLiquidity rejects a withdrawal whose payout would
	// exceed the pool's current value. Nothing is mutated.
	ErrInsufficientLiquidity = errors.New("withdrawal exceeds pool liquidity")
	ErrInsufficientShares    = errors.New("withdrawal exceeds lender shares")
	// ErrDuplicateTx rejects a deposit/withdrawal event whose on-chain tx
	// hash was already processed (at-most-once per hash).
	ErrDuplicateTx = errors.New("pool event already processed for tx hash")
)

// Account is a lender's off-chain mirror of their on-chain share position.
// It is derived entirely from the deposit/withdrawal event stream and is
// never authoritative; the contract is.
type Account struct {
	ID              uint64       `gorm:"primaryKey;column:id" json:"-"`
	LenderID        string       `gorm:"size:32;uniqueIndex:ux_pool_accounts_lender" json:"lender_id"`
	Principal       ledger.Money `gorm:"column:principal;default:0" json:"principal"`
	AccruedInterest ledger.Money `gorm:"column:accrued_interest;default:0" json:"accrued_interest"`
	// Shares is the decimal string form of the lender's share balance.
	Shares    string    `gorm:"size:80;column:shares;default:'0'" json:"shares"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "pool_accounts" }

func (a *Account) ShareBalance() ledger.Shares {
	s, ok := ledger.ParseShares(a.Shares)
	if !ok {
		return ledger.NewShares(0)
	}
	return s
}

// Deposit is an immutable ledger event, the sole driver of Account principal
// increments.
type Deposit struct {
	DepositID string       `gorm:"primaryKey;size:36;column:deposit_id" json:"deposit_id"`
	LenderID  string       `gorm:"size:32;index" json:"lender_id"`
	Amount    ledger.Money `gorm:"column:amount" json:"amount"`
	Shares    string       `gorm:"size:80;column:shares" json:"shares"`
	TxHash    string       `gorm:"size:128;uniqueIndex:ux_pool_deposits_tx" json:"tx_hash,omitempty"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (Deposit) TableName() string { return "pool_deposits" }

// Withdrawal is an immutable ledger event mirroring an on-chain share burn.
type Withdrawal struct {
	WithdrawalID string       `gorm:"primaryKey;size:36;column:withdrawal_id" json:"withdrawal_id"`
	LenderID     string       `gorm:"size:32;index" json:"lender_id"`
	PrincipalOut ledger.Money `gorm:"column:principal_out" json:"principal_out"`
	InterestOut  ledger.Money `gorm:"column:interest_out;default:0" json:"interest_out"`
	Shares       string       `gorm:"size:80;column:shares" json:"shares"`
	TxHash       string       `gorm:"size:128;uniqueIndex:ux_pool_withdrawals_tx" json:"tx_hash,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (Withdrawal) TableName() string { return "pool_withdrawals" }

// Totals is the single shared row mirroring the contract's pool totals. All
// cross-lender operations contend on this row, so it is always read with a
// row lock inside the mutating transaction.
type Totals struct {
	ID          uint64       `gorm:"primaryKey;column:id" json:"-"`
	TotalPool   ledger.Money `gorm:"column:total_pool;default:0" json:"total_pool"`
	TotalShares string       `gorm:"size:80;column:total_shares;default:'0'" json:"total_shares"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Totals) TableName() string { return "pool_totals" }

func (t *Totals) ShareSupply() ledger.Shares {
	s, ok := ledger.ParseShares(t.TotalShares)
	if !ok {
		return ledger.NewShares(0)
	}
	return s
}

// Snapshot is a periodic accounting checkpoint, keyed by instant, never
// mutated.
type Snapshot struct {
	At                  time.Time    `gorm:"primaryKey;column:at" json:"at"`
	TotalPool           ledger.Money `gorm:"column:total_pool" json:"total_pool"`
	TotalPrincipal      ledger.Money `gorm:"column:total_principal" json:"total_principal"`
	AccInterestPerShare string       `gorm:"size:80;column:acc_interest_per_share" json:"acc_interest_per_share"`
}

func (Snapshot) TableName() string { return "pool_snapshots" }
