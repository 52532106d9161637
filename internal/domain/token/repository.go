package token

import "context"

type Repository interface {
	// AppendEvent records the event and applies its delta to the user's
	// balance inside the enclosing transaction.
	AppendEvent(ctx context.Context, e *Event) error
	GetBalance(ctx context.Context, userID string) (*TrustBalance, error)
	// ReplayBalance recomputes the balance from the event stream, for audit.
	ReplayBalance(ctx context.Context, userID string) (int64, error)
	ListRules(ctx context.Context) ([]TierRule, error)
}
