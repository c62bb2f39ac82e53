package invitations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"approvalflow-backend/internal/application/emails"
	invsvc "approvalflow-backend/internal/application/invitations"
	"approvalflow-backend/internal/application/membership"
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

func setupInvitationsTest(t *testing.T) (*Handlers, *invsvc.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedRoles(db))

	svc := &invsvc.Service{
		DB:            db,
		Assigner:      &membership.GormAssigner{DB: db},
		Sender:        emails.LogSender{},
		InviteBaseURL: "https://app.example.com",
	}
	h := &Handlers{
		Service: svc,
		Config:  middleware.SessionConfig{AllowCrossSiteDev: false, IsProduction: false},
	}
	return h, svc, db
}

func roleID(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	var role domain.Role
	require.NoError(t, db.Where("name = ?", name).First(&role).Error)
	return role.ID
}

// seedAdmin creates an organization with a confirmed admin member.
func seedAdmin(t *testing.T, db *gorm.DB) (adminID, orgID uuid.UUID, adminEmail string) {
	adminEmail = "admin@acme.test"
	now := time.Now()
	identity := domain.AuthIdentity{Email: adminEmail, PasswordHash: "x", ConfirmedAt: &now}
	require.NoError(t, db.Create(&identity).Error)

	org := domain.Organization{Name: "Acme", Industry: "Software", Size: "11-50"}
	require.NoError(t, db.Create(&org).Error)

	user := domain.User{ID: identity.ID, Email: adminEmail, Name: "Admin", OrganizationID: &org.ID}
	require.NoError(t, db.Create(&user).Error)

	require.NoError(t, db.Create(&domain.UserRole{
		UserID:         identity.ID,
		OrganizationID: org.ID,
		RoleID:         roleID(t, db, "admin"),
		AssignedBy:     identity.ID,
	}).Error)

	org.AdminID = &identity.ID
	require.NoError(t, db.Save(&org).Error)
	return identity.ID, org.ID, adminEmail
}

func actorApp(adminID, orgID uuid.UUID, email string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":         adminID.String(),
			"name":            "Admin",
			"email":           email,
			"role":            "admin",
			"organization_id": orgID.String(),
		})
		return c.Next()
	})
	return app
}

type testResponse struct {
	Code int
	Body []byte
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) testResponse {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return testResponse{Code: resp.StatusCode, Body: b}
}

func TestCreateInvite_ThenCheckToken(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)
	app.Get("/check-token", h.CheckToken)

	rec := postJSON(t, app, "/create-invite", map[string]string{
		"email": "newhire@acme.test", "name": "New Hire", "role": "manager",
	})
	assert.Equal(t, 201, rec.Code)

	var inv domain.Invitation
	require.NoError(t, db.Where("email = ?", "newhire@acme.test").First(&inv).Error)
	assert.Equal(t, domain.InviteStatusPending, inv.Status)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), inv.ExpiresAt, time.Minute)

	req := httptest.NewRequest("GET", "/check-token?token="+inv.Token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	view := data["invitation"].(map[string]interface{})
	assert.Equal(t, "newhire@acme.test", view["email"])
	assert.Equal(t, "manager", view["role"])
	assert.Equal(t, "Acme", view["organization_name"])
	assert.Equal(t, "pending", view["status"])
}

func TestCreateInvite_SelfInvite(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": adminEmail, "role": "viewer"})
	assert.Equal(t, 400, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body, &out))
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "You cannot invite yourself", errObj["message"])
}

func TestCreateInvite_DuplicatePending(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": "dup@acme.test", "role": "user"})
	require.Equal(t, 201, rec.Code)

	rec = postJSON(t, app, "/create-invite", map[string]string{"email": "dup@acme.test", "role": "user"})
	assert.Equal(t, 400, rec.Code)
}

func TestCreateInvite_NonAdminForbidden(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	_, orgID, _ := seedAdmin(t, db)

	// Session claims admin but the database holds no admin role for this user.
	impostor := uuid.New()
	app := actorApp(impostor, orgID, "impostor@acme.test")
	app.Post("/create-invite", h.Create)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": "x@acme.test", "role": "user"})
	assert.Equal(t, 403, rec.Code)
}

func TestCheckToken_Unknown(t *testing.T) {
	h, _, _ := setupInvitationsTest(t)
	app := fiber.New()
	app.Get("/check-token", h.CheckToken)

	req := httptest.NewRequest("GET", "/check-token?token=nonexistent-token", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCheckToken_ExpiredFlipIsIdempotent(t *testing.T) {
	h, svc, db := setupInvitationsTest(t)
	adminID, orgID, _ := seedAdmin(t, db)

	inv := domain.Invitation{
		Email:          "late@acme.test",
		RoleID:         roleID(t, db, "user"),
		OrganizationID: orgID,
		InvitedBy:      adminID,
		Token:          uuid.New().String(),
		Status:         domain.InviteStatusPending,
		ExpiresAt:      time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(&inv).Error)

	app := fiber.New()
	app.Get("/check-token", h.CheckToken)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/check-token?token="+inv.Token, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var out map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		view := out["data"].(map[string]interface{})["invitation"].(map[string]interface{})
		assert.Equal(t, "expired", view["status"])
	}

	var stored domain.Invitation
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	assert.Equal(t, domain.InviteStatusExpired, stored.Status)

	// Expired invitations cannot be accepted through the service either.
	_, err := svc.Accept(context.Background(), invsvc.AcceptInput{
		Token: inv.Token, Name: "Late", Password: "Str0ng!pass",
	})
	require.Error(t, err)
}

func TestAccept_HappyPath(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	admin := actorApp(adminID, orgID, adminEmail)
	admin.Post("/create-invite", h.Create)
	rec := postJSON(t, admin, "/create-invite", map[string]string{
		"email": "member@acme.test", "role": "user",
	})
	require.Equal(t, 201, rec.Code)

	var inv domain.Invitation
	require.NoError(t, db.Where("email = ?", "member@acme.test").First(&inv).Error)

	public := fiber.New()
	public.Post("/accept", h.Accept)
	public.Get("/check-token", h.CheckToken)

	rec = postJSON(t, public, "/accept", map[string]string{
		"token": inv.Token, "name": "Member", "password": "Str0ng!pass",
	})
	assert.Equal(t, 201, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body, &out))
	user := out["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "member@acme.test", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.Equal(t, orgID.String(), user["organization_id"])

	// Account, membership and role assignment all exist.
	var identity domain.AuthIdentity
	require.NoError(t, db.Where("email = ?", "member@acme.test").First(&identity).Error)
	assert.True(t, identity.Confirmed())

	var profile domain.User
	require.NoError(t, db.Where("id = ?", identity.ID).First(&profile).Error)
	require.NotNil(t, profile.OrganizationID)
	assert.Equal(t, orgID, *profile.OrganizationID)

	var ur domain.UserRole
	require.NoError(t, db.Where("user_id = ? AND organization_id = ?", identity.ID, orgID).First(&ur).Error)

	var stored domain.Invitation
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	assert.Equal(t, domain.InviteStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)

	// The token now resolves as accepted rather than pending.
	req := httptest.NewRequest("GET", "/check-token?token="+inv.Token, nil)
	resp, err := public.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var checked map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&checked))
	view := checked["data"].(map[string]interface{})["invitation"].(map[string]interface{})
	assert.Equal(t, "accepted", view["status"])
}

func TestAccept_EmailMismatchCreatesNoAccount(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, _ := seedAdmin(t, db)

	inv := domain.Invitation{
		Email:          "invited@acme.test",
		RoleID:         roleID(t, db, "user"),
		OrganizationID: orgID,
		InvitedBy:      adminID,
		Token:          uuid.New().String(),
		Status:         domain.InviteStatusPending,
		ExpiresAt:      time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(&inv).Error)

	public := fiber.New()
	public.Post("/accept", h.Accept)

	rec := postJSON(t, public, "/accept", map[string]string{
		"token": inv.Token, "email": "someoneelse@acme.test", "password": "Str0ng!pass",
	})
	assert.Equal(t, 400, rec.Code)

	var count int64
	require.NoError(t, db.Model(&domain.AuthIdentity{}).Where("email = ?", "someoneelse@acme.test").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&domain.AuthIdentity{}).Where("email = ?", "invited@acme.test").Count(&count).Error)
	assert.Zero(t, count)

	var stored domain.Invitation
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	assert.Equal(t, domain.InviteStatusPending, stored.Status)
}

func TestAccept_RoleAssignmentFailureRollsBackAccount(t *testing.T) {
	h, svc, db := setupInvitationsTest(t)
	adminID, orgID, _ := seedAdmin(t, db)

	svc.Assigner = failingAssigner{}

	inv := domain.Invitation{
		Email:          "rollback@acme.test",
		RoleID:         roleID(t, db, "user"),
		OrganizationID: orgID,
		InvitedBy:      adminID,
		Token:          uuid.New().String(),
		Status:         domain.InviteStatusPending,
		ExpiresAt:      time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, db.Create(&inv).Error)

	public := fiber.New()
	public.Post("/accept", h.Accept)

	rec := postJSON(t, public, "/accept", map[string]string{
		"token": inv.Token, "name": "Rollback", "password": "Str0ng!pass",
	})
	assert.Equal(t, 500, rec.Code)

	// Both the identity and the profile written before the failure are gone.
	var count int64
	require.NoError(t, db.Model(&domain.AuthIdentity{}).Where("email = ?", "rollback@acme.test").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Unscoped().Model(&domain.User{}).Where("email = ?", "rollback@acme.test").Count(&count).Error)
	assert.Zero(t, count)

	var stored domain.Invitation
	require.NoError(t, db.Where("id = ?", inv.ID).First(&stored).Error)
	assert.Equal(t, domain.InviteStatusPending, stored.Status)
}

func TestResend_RotatesToken(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)
	app.Post("/resend-invite", h.Resend)
	app.Get("/check-token", h.CheckToken)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": "rotate@acme.test", "role": "viewer"})
	require.Equal(t, 201, rec.Code)

	var before domain.Invitation
	require.NoError(t, db.Where("email = ?", "rotate@acme.test").First(&before).Error)

	rec = postJSON(t, app, "/resend-invite", map[string]string{"email": "rotate@acme.test"})
	assert.Equal(t, 200, rec.Code)

	var after domain.Invitation
	require.NoError(t, db.Where("email = ?", "rotate@acme.test").First(&after).Error)
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.Token, after.Token)
	assert.True(t, after.ExpiresAt.After(before.ExpiresAt) || after.ExpiresAt.Equal(before.ExpiresAt))

	// The old token no longer resolves.
	req := httptest.NewRequest("GET", "/check-token?token="+before.Token, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	req = httptest.NewRequest("GET", "/check-token?token="+after.Token, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCancel_RemovesInvitation(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)
	app.Delete("/cancel-invite", h.Cancel)
	app.Get("/check-token", h.CheckToken)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": "gone@acme.test", "role": "viewer"})
	require.Equal(t, 201, rec.Code)

	var inv domain.Invitation
	require.NoError(t, db.Where("email = ?", "gone@acme.test").First(&inv).Error)

	body, _ := json.Marshal(map[string]string{"email": "gone@acme.test"})
	req := httptest.NewRequest("DELETE", "/cancel-invite", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&domain.Invitation{}).Where("id = ?", inv.ID).Count(&count).Error)
	assert.Zero(t, count)

	req = httptest.NewRequest("GET", "/check-token?token="+inv.Token, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestList_FiltersByStatus(t *testing.T) {
	h, _, db := setupInvitationsTest(t)
	adminID, orgID, adminEmail := seedAdmin(t, db)

	app := actorApp(adminID, orgID, adminEmail)
	app.Post("/create-invite", h.Create)
	app.Get("/view-invites", h.List)

	rec := postJSON(t, app, "/create-invite", map[string]string{"email": "one@acme.test", "role": "user"})
	require.Equal(t, 201, rec.Code)
	rec = postJSON(t, app, "/create-invite", map[string]string{"email": "two@acme.test", "role": "viewer"})
	require.Equal(t, 201, rec.Code)

	require.NoError(t, db.Create(&domain.Invitation{
		Email:          "old@acme.test",
		RoleID:         roleID(t, db, "user"),
		OrganizationID: orgID,
		InvitedBy:      adminID,
		Token:          uuid.New().String(),
		Status:         domain.InviteStatusPending,
		ExpiresAt:      time.Now().Add(-time.Hour),
	}).Error)

	req := httptest.NewRequest("GET", "/view-invites?status=pending", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	invites := out["data"].(map[string]interface{})["invitations"].([]interface{})
	assert.Len(t, invites, 2)

	req = httptest.NewRequest("GET", "/view-invites?status=expired", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	invites = out["data"].(map[string]interface{})["invitations"].([]interface{})
	assert.Len(t, invites, 1)
}

func TestCreateInvite_NoOrganizationIsRejected(t *testing.T) {
	h, _, db := setupInvitationsTest(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id": uuid.New().String(),
			"name":    "Drifter",
			"email":   "drifter@acme.test",
			"role":    "admin",
			// no organization_id: the user never onboarded
		})
		return c.Next()
	})
	app.Post("/create-invite", h.Create)

	rec := postJSON(t, app, "/create-invite", map[string]string{
		"email": "newhire@acme.test", "role": "manager",
	})
	require.Equal(t, 400, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body, &out))
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "User does not belong to an organization", errObj["message"])

	var count int64
	require.NoError(t, db.Model(&domain.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)
}
