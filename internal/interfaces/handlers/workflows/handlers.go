package workflows

import (
	wfsvc "approvalflow-backend/internal/application/workflows"
	"approvalflow-backend/internal/middleware"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for workflow endpoints.
type Handlers struct {
	Service *wfsvc.Service
}

// orgScope writes the rejection itself; callers must stop when ok is false.
func orgScope(c *fiber.Ctx) (actorID, orgID uuid.UUID, ok bool) {
	actor := middleware.Actor(c)
	if actor == nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	actorID, err := uuid.Parse(actor.UserID)
	if err != nil {
		_ = response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}
	orgID, err = uuid.Parse(actor.OrganizationID)
	if err != nil {
		_ = response.Error(c, "User does not belong to an organization", fiber.StatusBadRequest, nil)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, orgID, true
}

func fail(c *fiber.Ctx, err error) error {
	switch err {
	case wfsvc.ErrNameRequired, wfsvc.ErrStepsRequired, wfsvc.ErrStepNameRequired,
		wfsvc.ErrBadApproverEmail, wfsvc.ErrUnknownStatus:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case wfsvc.ErrWorkflowNotFound:
		return response.NotFound(c, err.Error())
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

// Templates GET /api/v1/workflows/templates
func (h *Handlers) Templates(c *fiber.Ctx) error {
	return response.Success(c, "Templates retrieved", fiber.Map{
		"templates":   wfsvc.Templates(),
		"departments": wfsvc.Departments(),
		"types":       wfsvc.Types(),
	}, nil)
}

// Create POST /api/v1/workflows/create-workflow
func (h *Handlers) Create(c *fiber.Ctx) error {
	actorID, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	var req wfsvc.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Workflow name is required", fiber.StatusBadRequest, nil)
	}
	req.OrgID = orgID
	req.CreatedBy = actorID

	view, svcErr := h.Service.Create(c.Context(), req)
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.SuccessCreated(c, "Workflow created", view, nil)
}

// List GET /api/v1/workflows/view-workflows
func (h *Handlers) List(c *fiber.Ctx) error {
	_, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}

	workflows, svcErr := h.Service.List(c.Context(), orgID)
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Workflows retrieved", fiber.Map{"workflows": workflows}, nil)
}

// Get GET /api/v1/workflows/view-workflow/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	_, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, wfsvc.ErrWorkflowNotFound.Error())
	}

	view, svcErr := h.Service.Get(c.Context(), orgID, workflowID)
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Workflow retrieved", view, nil)
}

// Update PATCH /api/v1/workflows/update-workflow/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	_, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, wfsvc.ErrWorkflowNotFound.Error())
	}

	var req wfsvc.UpdateInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	wf, svcErr := h.Service.Update(c.Context(), orgID, workflowID, req)
	if svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Workflow updated", fiber.Map{"workflow": wf}, nil)
}

// Delete DELETE /api/v1/workflows/delete-workflow/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	_, orgID, ok := orgScope(c)
	if !ok {
		return nil
	}
	workflowID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.NotFound(c, wfsvc.ErrWorkflowNotFound.Error())
	}

	if svcErr := h.Service.Delete(c.Context(), orgID, workflowID); svcErr != nil {
		return fail(c, svcErr)
	}
	return response.Success(c, "Workflow deleted", nil, nil)
}
