package mysql

import (
	"gorm.io/gorm"

	loanDomain "lendpool/internal/domain/loan"
	poolDomain "lendpool/internal/domain/pool"
	tokenDomain "lendpool/internal/domain/token"
)

// AutoMigrate creates or updates every table the repositories touch.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&loanDomain.Loan{},
		&loanDomain.ScheduleLine{},
		&loanDomain.Repayment{},
		&loanDomain.Event{},
		&loanDomain.Disbursement{},
		&poolDomain.Totals{},
		&poolDomain.Account{},
		&poolDomain.Deposit{},
		&poolDomain.Withdrawal{},
		&poolDomain.Snapshot{},
		&tokenDomain.Event{},
		&tokenDomain.TrustBalance{},
		&tokenDomain.TierRule{},
	)
}
