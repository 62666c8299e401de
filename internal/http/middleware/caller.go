package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"fleetdocs/internal/model"
)

const (
	// CallerIDHeader and CallerAdminHeader are set by the authenticating
	// gateway in front of this service.
	CallerIDHeader    = "X-User-ID"
	CallerAdminHeader = "X-User-Admin"

	// CallerLocalKey is the key used to store the caller in context locals.
	CallerLocalKey = "caller"
)

// Caller resolves the authenticated caller identity from gateway headers and
// stores it in context locals. Requests without a parseable user id are
// rejected; authentication itself is out of scope here.
func Caller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Get(CallerIDHeader), 10, 64)
		if err != nil || id <= 0 {
			return fiber.ErrUnauthorized
		}
		isAdmin, _ := strconv.ParseBool(c.Get(CallerAdminHeader))

		c.Locals(CallerLocalKey, model.Caller{ID: id, IsAdmin: isAdmin})
		return c.Next()
	}
}

// CallerFromCtx returns the caller stored by the Caller middleware.
func CallerFromCtx(c *fiber.Ctx) model.Caller {
	if v, ok := c.Locals(CallerLocalKey).(model.Caller); ok {
		return v
	}
	return model.Caller{}
}
