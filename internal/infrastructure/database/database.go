package database

import (
	"encoding/json"

	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/pkg/constants"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN. PreferSimpleProtocol disables prepared
// statement caching to avoid 42P05 ("prepared statement already exists")
// when running behind connection poolers (PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.AuthIdentity{},
		&domain.Organization{},
		&domain.User{},
		&domain.Role{},
		&domain.UserRole{},
		&domain.Invitation{},
		&domain.Workflow{},
		&domain.WorkflowStep{},
	)
}

// SeedRoles ensures the fixed role set exists with its permission lists.
// Safe to run on every startup.
func SeedRoles(db *gorm.DB) error {
	for _, name := range constants.SeedRoleNames() {
		perms, err := json.Marshal(constants.RolePermissions(name))
		if err != nil {
			return err
		}
		role := domain.Role{
			Name:        name,
			Description: constants.RoleDescriptions[name],
			Permissions: datatypes.JSON(perms),
		}
		if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
