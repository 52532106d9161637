package mysql

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	tokenDomain "lendpool/internal/domain/token"
)

// SeedTierRules installs the tier table on first boot. Existing rows win;
// operators tune tiers in the database, not in code.
func SeedTierRules(db *gorm.DB, rules []tokenDomain.TierRule) error {
	if len(rules) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rules).Error
}
