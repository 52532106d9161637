package token

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("trust balance not found")

type Kind string

const (
	KindMint Kind = "mint"
	KindBurn Kind = "burn"
	KindInit Kind = "init"
)

// Event is one row of the reputation-token mint/burn ledger. Events are
// append-only; the balance is derived from them.
type Event struct {
	EventID   string    `gorm:"primaryKey;size:36;column:event_id" json:"event_id"`
	UserID    string    `gorm:"size:32;index:idx_token_events_user_kind" json:"user_id"`
	Kind      Kind      `gorm:"size:8;index:idx_token_events_user_kind" json:"kind"`
	Amount    int64     `gorm:"column:amount" json:"amount"`
	Reason    string    `gorm:"size:64" json:"reason"`
	TxHash    string    `gorm:"size:128;index" json:"tx_hash,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Event) TableName() string { return "token_events" }

// Delta is the signed balance contribution of the event.
func (e *Event) Delta() int64 {
	if e.Kind == KindBurn {
		return -e.Amount
	}
	return e.Amount
}

// TrustBalance is the derived running balance, updated incrementally on each
// event and re-derivable by replaying the event stream.
type TrustBalance struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID    string    `gorm:"size:32;uniqueIndex:ux_trust_balances_user" json:"user_id"`
	Balance   int64     `gorm:"column:balance;default:0" json:"balance"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TrustBalance) TableName() string { return "trust_balances" }

// TierRule maps a reputation balance bracket to loan caps and base APR.
// Rules are scanned in order; the first rule whose MinBalance the balance
// meets wins, so overlapping brackets resolve to the highest-priority row.
type TierRule struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	Name       string `gorm:"size:32;uniqueIndex" json:"name"`
	MinBalance int64  `gorm:"column:min_balance" json:"min_balance"`
	MaxLoanCap int64  `gorm:"column:max_loan_cap" json:"max_loan_cap"`
	BaseAPRBPS uint32 `gorm:"column:base_apr_bps" json:"base_apr_bps"`
	SortOrder  int    `gorm:"column:sort_order;default:0" json:"-"`
}

func (TierRule) TableName() string { return "token_tier_rules" }
