package middleware

import (
	"github.com/gofiber/fiber/v2"

	"pulse/app/api"
)

const apiKeyHeader = "X-API-Key"

// APIKeyAuth admits requests carrying any of the given keys in the
// X-API-Key header. Empty keys are never admitted.
func APIKeyAuth(keys ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key != "" {
			allowed[key] = struct{}{}
		}
	}
	return func(c *fiber.Ctx) error {
		if _, ok := allowed[c.Get(apiKeyHeader)]; !ok {
			return api.ErrUnAuthorized("invalid API key")
		}
		return c.Next()
	}
}

// AdminOnly admits only the admin key.
func AdminOnly(adminKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminKey == "" || c.Get(apiKeyHeader) != adminKey {
			return api.ErrForbidden("admin only")
		}
		return c.Next()
	}
}
