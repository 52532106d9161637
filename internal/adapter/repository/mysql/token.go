package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	tokenDomain "lendpool/internal/domain/token"
)

type TokenRepository struct{ db *gorm.DB }

func NewTokenRepository(db *gorm.DB) *TokenRepository { return &TokenRepository{db: db} }

// AppendEvent stores the ledger row and applies its delta to the derived
// balance under a row lock, in the caller's transaction.
func (r *TokenRepository) AppendEvent(ctx context.Context, e *tokenDomain.Event) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return err
	}
	var bal tokenDomain.TrustBalance
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", e.UserID).
		First(&bal)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		bal = tokenDomain.TrustBalance{UserID: e.UserID}
		if err := r.db.WithContext(ctx).Create(&bal).Error; err != nil {
			return err
		}
	} else if res.Error != nil {
		return res.Error
	}
	bal.Balance += e.Delta()
	return r.db.WithContext(ctx).Save(&bal).Error
}

func (r *TokenRepository) GetBalance(ctx context.Context, userID string) (*tokenDomain.TrustBalance, error) {
	var out tokenDomain.TrustBalance
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out)
	return &out, res.Error
}

// ReplayBalance re-derives the balance from the event stream. Audit path,
// never used for live reads.
func (r *TokenRepository) ReplayBalance(ctx context.Context, userID string) (int64, error) {
	var events []tokenDomain.Event
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, event_id ASC").
		Find(&events)
	if res.Error != nil {
		return 0, res.Error
	}
	var total int64
	for i := range events {
		total += events[i].Delta()
	}
	return total, nil
}

func (r *TokenRepository) ListRules(ctx context.Context) ([]tokenDomain.TierRule, error) {
	var out []tokenDomain.TierRule
	res := r.db.WithContext(ctx).Order("sort_order ASC").Find(&out)
	return out, res.Error
}
