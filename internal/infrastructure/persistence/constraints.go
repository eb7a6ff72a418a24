package persistence

import (
	"fmt"

	"github.com/freightport/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// uniqueIndex is a constraint the model tags cannot declare: either it is
// partial, or it spans a column of the embedded CompanyAggregateModel.
type uniqueIndex struct {
	model   any
	table   string
	name    string
	columns string
	where   string
}

// Mirrors 000002_bill_history_and_unique_refs.up.sql for AutoMigrate setups.
var uniqueIndexes = []uniqueIndex{
	{&models.UserModel{}, "users", "idx_users_email", "email", "email <> ''"},
	{&models.ShipmentModel{}, "shipments", "idx_shipments_reference", "company_id, tracking_type, tracking_number", ""},
}

func ensureUniqueIndexes(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	for _, idx := range uniqueIndexes {
		if db.Migrator().HasIndex(idx.model, idx.name) {
			continue
		}
		if err := db.Exec(idx.createSQL(dialect)).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (idx uniqueIndex) createSQL(dialect string) string {
	columns, where := idx.columns, idx.where
	if where != "" && dialect == "mysql" {
		// no partial indexes in MySQL; NULLs never collide in a unique index
		columns, where = "(NULLIF("+columns+", ''))", ""
	}
	stmt := fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)", idx.name, idx.table, columns)
	if where != "" {
		stmt += " WHERE " + where
	}
	return stmt
}
