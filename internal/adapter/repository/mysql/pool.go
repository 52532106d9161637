package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	poolDomain "lendpool/internal/domain/pool"
)

type PoolRepository struct{ db *gorm.DB }

func NewPoolRepository(db *gorm.DB) *PoolRepository { return &PoolRepository{db: db} }

// GetTotalsForUpdate locks the single shared totals row, creating it on
// first use. Every cross-lender mutation serializes here.
func (r *PoolRepository) GetTotalsForUpdate(ctx context.Context) (*poolDomain.Totals, error) {
	var out poolDomain.Totals
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		out = poolDomain.Totals{TotalPool: 0, TotalShares: "0"}
		if err := r.db.WithContext(ctx).Create(&out).Error; err != nil {
			return nil, err
		}
		return &out, nil
	}
	return &out, res.Error
}

func (r *PoolRepository) SaveTotals(ctx context.Context, t *poolDomain.Totals) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *PoolRepository) GetAccount(ctx context.Context, lenderID string) (*poolDomain.Account, error) {
	var out poolDomain.Account
	res := r.db.WithContext(ctx).Where("lender_id = ?", lenderID).First(&out)
	return &out, res.Error
}

func (r *PoolRepository) GetAccountForUpdate(ctx context.Context, lenderID string) (*poolDomain.Account, error) {
	var out poolDomain.Account
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lender_id = ?", lenderID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		out = poolDomain.Account{LenderID: lenderID, Shares: "0"}
		if err := r.db.WithContext(ctx).Create(&out).Error; err != nil {
			return nil, err
		}
		return &out, nil
	}
	return &out, res.Error
}

func (r *PoolRepository) SaveAccount(ctx context.Context, a *poolDomain.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *PoolRepository) SumPrincipal(ctx context.Context) (int64, error) {
	var total *int64
	res := r.db.WithContext(ctx).Model(&poolDomain.Account{}).
		Select("SUM(principal)").
		Scan(&total)
	if res.Error != nil {
		return 0, res.Error
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *PoolRepository) CreateDeposit(ctx context.Context, d *poolDomain.Deposit) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *PoolRepository) CreateWithdrawal(ctx context.Context, w *poolDomain.Withdrawal) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *PoolRepository) DepositExists(ctx context.Context, txHash string) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&poolDomain.Deposit{}).
		Where("tx_hash = ?", txHash).
		Count(&n)
	return n > 0, res.Error
}

func (r *PoolRepository) WithdrawalExists(ctx context.Context, txHash string) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).Model(&poolDomain.Withdrawal{}).
		Where("tx_hash = ?", txHash).
		Count(&n)
	return n > 0, res.Error
}

func (r *PoolRepository) CreateSnapshot(ctx context.Context, s *poolDomain.Snapshot) error {
	return r.db.WithContext(ctx).Create(s).Error
}
