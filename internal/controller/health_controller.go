package controller

import (
	"kb-console/internal/pkg/serverutils"
	"kb-console/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	service service.IConsoleService
}

func NewHealthController(service service.IConsoleService) IHealthController {
	return &healthController{service: service}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/healthz", c.Health)
}

// Health reports console liveness. An unreachable backend degrades the
// status but still answers 200.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := c.service.Health(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Console is running", res))
}
