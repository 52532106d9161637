package tokenmock

import (
	"context"

	"gorm.io/gorm"

	domain "lendpool/internal/domain/token"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unfilled getters behave like a user with no reputation history.
type Repo struct {
	AppendEventFn   func(ctx context.Context, e *domain.Event) error
	GetBalanceFn    func(ctx context.Context, userID string) (*domain.TrustBalance, error)
	ReplayBalanceFn func(ctx context.Context, userID string) (int64, error)
	ListRulesFn     func(ctx context.Context) ([]domain.TierRule, error)
}

func (m *Repo) AppendEvent(ctx context.Context, e *domain.Event) error {
	if m.AppendEventFn != nil {
		return m.AppendEventFn(ctx, e)
	}
	return nil
}

func (m *Repo) GetBalance(ctx context.Context, userID string) (*domain.TrustBalance, error) {
	if m.GetBalanceFn != nil {
		return m.GetBalanceFn(ctx, userID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) ReplayBalance(ctx context.Context, userID string) (int64, error) {
	if m.ReplayBalanceFn != nil {
		return m.ReplayBalanceFn(ctx, userID)
	}
	return 0, nil
}

func (m *Repo) ListRules(ctx context.Context) ([]domain.TierRule, error) {
	if m.ListRulesFn != nil {
		return m.ListRulesFn(ctx)
	}
	return nil, nil
}
