package serverutils

import (
	"kb-console/internal/constant"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ConsoleMiddleware gives every browser a console id cookie and exposes the
// id to handlers through Locals.
func ConsoleMiddleware(cookieName string, secure bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id := ctx.Cookies(cookieName)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			ctx.Cookie(&fiber.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		ctx.Locals(constant.LocalsConsoleId, id)
		return ctx.Next()
	}
}

// ConsoleId returns the id set by ConsoleMiddleware.
func ConsoleId(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(constant.LocalsConsoleId).(string)
	return id
}

// WantsFragment reports whether the request came from the console scripts.
func WantsFragment(ctx *fiber.Ctx) bool {
	return ctx.Get(constant.HeaderFragment) != ""
}
