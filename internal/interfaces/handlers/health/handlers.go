package health

import (
	"context"

	healthsvc "approvalflow-backend/internal/application/health"
	"approvalflow-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	HealthAdminKey string
}

// Status GET / renders the HTML status page.
func (h *Handlers) Status(c *fiber.Ctx) error {
	result := healthsvc.Collect(context.Background(), h.Rdb, h.DB)
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(healthsvc.RenderStatusPage(result))
}

// JSON GET /health/json returns collected health data.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := healthsvc.Collect(context.Background(), h.Rdb, h.DB)
	return c.JSON(map[string]interface{}{
		"service":      "approvalflow-api",
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Errors GET /health/errors returns recent 5xx log entries.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	return c.JSON(healthsvc.RecentErrors(context.Background(), h.Rdb))
}

// Reset GET /reset clears traffic stats. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" || key != h.HealthAdminKey {
		return response.Error(c, "Unauthorized", fiber.StatusForbidden, nil)
	}
	healthsvc.ResetStats(context.Background(), h.Rdb)
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}
