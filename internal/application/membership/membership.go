package membership

import (
	"context"

	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignInput binds a user to a role within one organization.
type AssignInput struct {
	UserID         uuid.UUID
	RoleID         uuid.UUID
	OrganizationID uuid.UUID
	AssignedBy     uuid.UUID
}

// Assigner writes role assignments. Tests substitute a failing implementation
// to exercise rollback paths.
type Assigner interface {
	Assign(ctx context.Context, in AssignInput) (*domain.UserRole, error)
}

// GormAssigner upserts on the (user, organization) unique index so a user
// holds exactly one role per organization.
type GormAssigner struct {
	DB *gorm.DB
}

func (a *GormAssigner) Assign(ctx context.Context, in AssignInput) (*domain.UserRole, error) {
	ur := domain.UserRole{
		UserID:         in.UserID,
		OrganizationID: in.OrganizationID,
		RoleID:         in.RoleID,
		AssignedBy:     in.AssignedBy,
	}
	err := a.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "organization_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role_id", "assigned_by", "updated_at"}),
	}).Create(&ur).Error
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

// RoleOf returns the role name a user holds in an organization, or "" when
// they hold none.
func RoleOf(ctx context.Context, db *gorm.DB, userID, orgID uuid.UUID) (string, error) {
	var name string
	err := db.WithContext(ctx).
		Table("user_roles").
		Select("roles.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND user_roles.organization_id = ?", userID, orgID).
		Scan(&name).Error
	if err != nil {
		return "", err
	}
	return name, nil
}

// Remove deletes a user's role assignment in an organization.
func Remove(ctx context.Context, db *gorm.DB, userID, orgID uuid.UUID) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Delete(&domain.UserRole{}).Error
}

// DestroyUserSessions removes every Redis session belonging to a user.
// Deletes each session key (session:<sid>) and the user_sessions:<user_id> set.
func DestroyUserSessions(ctx context.Context, rdb *redis.Client, userID string) {
	if rdb == nil || userID == "" {
		return
	}
	key := "user_sessions:" + userID
	sessionIDs, err := rdb.SMembers(ctx, key).Result()
	if err != nil || len(sessionIDs) == 0 {
		rdb.Del(ctx, key)
		return
	}
	for _, sid := range sessionIDs {
		rdb.Del(ctx, middleware.SessionRedisPrefix+sid)
	}
	rdb.Del(ctx, key)
}
