package org

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"approvalflow-backend/internal/application/membership"
	orgsvc "approvalflow-backend/internal/application/org"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/infrastructure/database"
	"approvalflow-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingAssigner struct{}

func (failingAssigner) Assign(ctx context.Context, in membership.AssignInput) (*domain.UserRole, error) {
	return nil, errors.New("assignment unavailable")
}

func setupOrgTest(t *testing.T) (*Handlers, *orgsvc.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedRoles(db))

	svc := &orgsvc.Service{DB: db, Assigner: &membership.GormAssigner{DB: db}}
	h := &Handlers{Service: svc, Config: middleware.SessionConfig{}}
	return h, svc, db
}

func seedUser(t *testing.T, db *gorm.DB, email string, confirmed bool) uuid.UUID {
	identity := domain.AuthIdentity{Email: email, PasswordHash: "x"}
	if confirmed {
		now := time.Now()
		identity.ConfirmedAt = &now
	}
	require.NoError(t, db.Create(&identity).Error)
	require.NoError(t, db.Create(&domain.User{ID: identity.ID, Email: email, Name: "Someone"}).Error)
	return identity.ID
}

func sessionApp(userID uuid.UUID, email string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("session_data", map[string]interface{}{})
		c.Locals("user", map[string]interface{}{
			"user_id": userID.String(),
			"name":    "Someone",
			"email":   email,
			"role":    "",
		})
		return c.Next()
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return resp.StatusCode, out
}

func TestOnboard_HappyPath(t *testing.T) {
	h, _, db := setupOrgTest(t)
	userID := seedUser(t, db, "founder@acme.test", true)

	app := sessionApp(userID, "founder@acme.test")
	app.Post("/onboard", h.Onboard)

	code, out := postJSON(t, app, "/onboard", map[string]string{
		"name": "Acme", "industry": "Software", "size": "11-50", "admin_name": "Founder",
	})
	require.Equal(t, 201, code)

	org := out["data"].(map[string]interface{})["organization"].(map[string]interface{})
	orgID := org["id"].(string)

	var user domain.User
	require.NoError(t, db.Where("id = ?", userID).First(&user).Error)
	require.NotNil(t, user.OrganizationID)
	assert.Equal(t, orgID, user.OrganizationID.String())
	assert.Equal(t, "Founder", user.Name)

	role, err := membership.RoleOf(context.Background(), db, userID, *user.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	var stored domain.Organization
	require.NoError(t, db.Where("id = ?", orgID).First(&stored).Error)
	require.NotNil(t, stored.AdminID)
	assert.Equal(t, userID, *stored.AdminID)
}

func TestOnboard_UnconfirmedEmailForbidden(t *testing.T) {
	h, _, db := setupOrgTest(t)
	userID := seedUser(t, db, "hasty@acme.test", false)

	app := sessionApp(userID, "hasty@acme.test")
	app.Post("/onboard", h.Onboard)

	code, _ := postJSON(t, app, "/onboard", map[string]string{"name": "Acme"})
	assert.Equal(t, 403, code)

	var count int64
	require.NoError(t, db.Model(&domain.Organization{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOnboard_RoleFailureRollsBackEverything(t *testing.T) {
	h, svc, db := setupOrgTest(t)
	svc.Assigner = failingAssigner{}
	userID := seedUser(t, db, "unlucky@acme.test", true)

	app := sessionApp(userID, "unlucky@acme.test")
	app.Post("/onboard", h.Onboard)

	code, _ := postJSON(t, app, "/onboard", map[string]string{"name": "Doomed Inc", "admin_name": "Renamed"})
	assert.Equal(t, 500, code)

	var count int64
	require.NoError(t, db.Unscoped().Model(&domain.Organization{}).Count(&count).Error)
	assert.Zero(t, count)

	var user domain.User
	require.NoError(t, db.Where("id = ?", userID).First(&user).Error)
	assert.Nil(t, user.OrganizationID)
	assert.Equal(t, "Someone", user.Name)
}

func TestOnboard_AlreadyInOrg(t *testing.T) {
	h, _, db := setupOrgTest(t)
	userID := seedUser(t, db, "twice@acme.test", true)

	app := sessionApp(userID, "twice@acme.test")
	app.Post("/onboard", h.Onboard)

	code, _ := postJSON(t, app, "/onboard", map[string]string{"name": "First"})
	require.Equal(t, 201, code)

	code, _ = postJSON(t, app, "/onboard", map[string]string{"name": "Second"})
	assert.Equal(t, 409, code)
}

func TestUpdate_Allowlist(t *testing.T) {
	h, svc, db := setupOrgTest(t)
	userID := seedUser(t, db, "editor@acme.test", true)

	org, err := svc.Onboard(context.Background(), userID, orgsvc.OnboardInput{Name: "Before"})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":         userID.String(),
			"name":            "Someone",
			"email":           "editor@acme.test",
			"role":            "admin",
			"organization_id": org.ID.String(),
		})
		return c.Next()
	})
	app.Patch("/update-org", h.Update)

	body, _ := json.Marshal(map[string]string{"name": "After", "industry": "Fintech"})
	req := httptest.NewRequest("PATCH", "/update-org", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var stored domain.Organization
	require.NoError(t, db.Where("id = ?", org.ID).First(&stored).Error)
	assert.Equal(t, "After", stored.Name)
	assert.Equal(t, "Fintech", stored.Industry)
}
