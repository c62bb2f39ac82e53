package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	wfsvc "approvalflow-backend/internal/application/workflows"
	"approvalflow-backend/internal/domain"
	"approvalflow-backend/internal/infrastructure/database"

	"github.com/gofiber/fiber/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingStepInserter struct{}

func (failingStepInserter) InsertSteps(ctx context.Context, steps []domain.WorkflowStep) error {
	return errors.New("insert unavailable")
}

func setupWorkflowsTest(t *testing.T) (*Handlers, *wfsvc.Service, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedRoles(db))

	svc := &wfsvc.Service{DB: db, Steps: &wfsvc.GormStepInserter{DB: db}}
	h := &Handlers{Service: svc}
	return h, svc, db, uuid.New()
}

func managerApp(userID, orgID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":         userID.String(),
			"name":            "Manager",
			"email":           "manager@acme.test",
			"role":            "manager",
			"organization_id": orgID.String(),
		})
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		body, _ := json.Marshal(payload)
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(b, &out)
	return resp.StatusCode, out
}

func TestCreateWorkflow_WithOrderedSteps(t *testing.T) {
	h, _, db, userID := setupWorkflowsTest(t)
	orgID := uuid.New()

	app := managerApp(userID, orgID)
	app.Post("/create-workflow", h.Create)
	app.Get("/view-workflow/:id", h.Get)

	code, out := doJSON(t, app, "POST", "/create-workflow", map[string]interface{}{
		"name":       "Purchase Approval",
		"department": "Finance",
		"type":       "Purchase Request",
		"steps": []map[string]interface{}{
			{"name": "Direct Manager", "approver_email": "mgr@acme.test"},
			{"name": "Department Head", "approver_email": "head@acme.test"},
			{"name": "Executive Approval"},
		},
	})
	require.Equal(t, 201, code)

	wf := out["data"].(map[string]interface{})["workflow"].(map[string]interface{})
	wfID := wf["id"].(string)
	assert.Equal(t, "draft", wf["status"])

	var steps []domain.WorkflowStep
	require.NoError(t, db.Where("workflow_id = ?", wfID).Order("order_index ASC").Find(&steps).Error)
	require.Len(t, steps, 3)
	for i, st := range steps {
		assert.Equal(t, i+1, st.OrderIndex)
		assert.True(t, st.Required)
	}
	assert.Equal(t, "Direct Manager", steps[0].Name)
	assert.Equal(t, "Executive Approval", steps[2].Name)

	code, out = doJSON(t, app, "GET", "/view-workflow/"+wfID, nil)
	require.Equal(t, 200, code)
	got := out["data"].(map[string]interface{})["steps"].([]interface{})
	assert.Len(t, got, 3)
}

func TestCreateWorkflow_NoSteps(t *testing.T) {
	h, _, _, userID := setupWorkflowsTest(t)
	app := managerApp(userID, uuid.New())
	app.Post("/create-workflow", h.Create)

	code, _ := doJSON(t, app, "POST", "/create-workflow", map[string]interface{}{
		"name": "Empty", "steps": []map[string]interface{}{},
	})
	assert.Equal(t, 400, code)
}

func TestCreateWorkflow_StepInsertFailureLeavesNothing(t *testing.T) {
	h, svc, db, userID := setupWorkflowsTest(t)
	svc.Steps = failingStepInserter{}
	orgID := uuid.New()

	app := managerApp(userID, orgID)
	app.Post("/create-workflow", h.Create)

	code, _ := doJSON(t, app, "POST", "/create-workflow", map[string]interface{}{
		"name": "Doomed",
		"steps": []map[string]interface{}{
			{"name": "Only Step"},
		},
	})
	assert.Equal(t, 500, code)

	var count int64
	require.NoError(t, db.Unscoped().Model(&domain.Workflow{}).Where("organization_id = ?", orgID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&domain.WorkflowStep{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListWorkflows_ScopedToOrg(t *testing.T) {
	h, _, db, userID := setupWorkflowsTest(t)
	orgID := uuid.New()
	otherOrg := uuid.New()

	require.NoError(t, db.Create(&domain.Workflow{
		Name: "Mine", Department: "Ops", Type: "Other",
		OrganizationID: orgID, Status: domain.WorkflowStatusDraft, CreatedBy: userID,
	}).Error)
	require.NoError(t, db.Create(&domain.Workflow{
		Name: "Theirs", Department: "Ops", Type: "Other",
		OrganizationID: otherOrg, Status: domain.WorkflowStatusDraft, CreatedBy: uuid.New(),
	}).Error)

	app := managerApp(userID, orgID)
	app.Get("/view-workflows", h.List)

	code, out := doJSON(t, app, "GET", "/view-workflows", nil)
	require.Equal(t, 200, code)
	workflows := out["data"].(map[string]interface{})["workflows"].([]interface{})
	require.Len(t, workflows, 1)
	first := workflows[0].(map[string]interface{})
	assert.Equal(t, "Mine", first["name"])
}

func TestGetWorkflow_OtherOrgNotFound(t *testing.T) {
	h, _, db, userID := setupWorkflowsTest(t)
	otherOrg := uuid.New()

	wf := domain.Workflow{
		Name: "Hidden", Department: "Ops", Type: "Other",
		OrganizationID: otherOrg, Status: domain.WorkflowStatusDraft, CreatedBy: uuid.New(),
	}
	require.NoError(t, db.Create(&wf).Error)

	app := managerApp(userID, uuid.New())
	app.Get("/view-workflow/:id", h.Get)

	code, _ := doJSON(t, app, "GET", "/view-workflow/"+wf.ID.String(), nil)
	assert.Equal(t, 404, code)
}

func TestUpdateWorkflow_StatusTransition(t *testing.T) {
	h, _, db, userID := setupWorkflowsTest(t)
	orgID := uuid.New()

	wf := domain.Workflow{
		Name: "Draft", Department: "Ops", Type: "Other",
		OrganizationID: orgID, Status: domain.WorkflowStatusDraft, CreatedBy: userID,
	}
	require.NoError(t, db.Create(&wf).Error)

	app := managerApp(userID, orgID)
	app.Patch("/update-workflow/:id", h.Update)

	code, out := doJSON(t, app, "PATCH", "/update-workflow/"+wf.ID.String(), map[string]interface{}{
		"status": "active", "name": "Published",
	})
	require.Equal(t, 200, code)
	updated := out["data"].(map[string]interface{})["workflow"].(map[string]interface{})
	assert.Equal(t, "active", updated["status"])
	assert.Equal(t, "Published", updated["name"])

	code, _ = doJSON(t, app, "PATCH", "/update-workflow/"+wf.ID.String(), map[string]interface{}{
		"status": "archived",
	})
	assert.Equal(t, 400, code)
}

func TestDeleteWorkflow_RemovesSteps(t *testing.T) {
	h, _, db, userID := setupWorkflowsTest(t)
	orgID := uuid.New()

	wf := domain.Workflow{
		Name: "Gone", Department: "Ops", Type: "Other",
		OrganizationID: orgID, Status: domain.WorkflowStatusDraft, CreatedBy: userID,
	}
	require.NoError(t, db.Create(&wf).Error)
	require.NoError(t, db.Create(&domain.WorkflowStep{
		WorkflowID: wf.ID, Name: "Only", OrderIndex: 1, Required: true,
	}).Error)

	app := managerApp(userID, orgID)
	app.Delete("/delete-workflow/:id", h.Delete)

	code, _ := doJSON(t, app, "DELETE", "/delete-workflow/"+wf.ID.String(), nil)
	require.Equal(t, 200, code)

	var count int64
	require.NoError(t, db.Model(&domain.WorkflowStep{}).Where("workflow_id = ?", wf.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&domain.Workflow{}).Where("id = ?", wf.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTemplates(t *testing.T) {
	h, _, _, userID := setupWorkflowsTest(t)
	app := managerApp(userID, uuid.New())
	app.Get("/templates", h.Templates)

	code, out := doJSON(t, app, "GET", "/templates", nil)
	require.Equal(t, 200, code)
	data := out["data"].(map[string]interface{})
	templates := data["templates"].([]interface{})
	assert.Len(t, templates, 3)
	first := templates[0].(map[string]interface{})
	assert.Equal(t, "Simple Approval", first["name"])
	assert.NotEmpty(t, data["departments"])
	assert.NotEmpty(t, data["types"])
}

func TestList_NoOrganizationIsRejected(t *testing.T) {
	h, _, _, userID := setupWorkflowsTest(t)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":         userID.String(),
			"name":            "Drifter",
			"email":           "drifter@acme.test",
			"role":            "user",
			"organization_id": "",
		})
		return c.Next()
	})
	app.Get("/view-workflows", h.List)

	code, out := doJSON(t, app, "GET", "/view-workflows", nil)
	require.Equal(t, 400, code)
	errObj := out["error"].(map[string]interface{})
	assert.Equal(t, "User does not belong to an organization", errObj["message"])
	assert.Nil(t, out["data"])
}
