package middleware

import (
	"log"

	"github.com/anjiri1684/agency_messaging/models"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const identityKey = "identity"

// Protected verifies the bearer token issued by the identity provider.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// Identify turns verified claims into the caller identity and refreshes the
// caller's display record. A failed refresh is logged; it never blocks the request.
func Identify(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"status": "error", "message": "Invalid token claims", "data": nil})
		}

		identity := models.Identity{
			ID:        claimString(claims, "user_id"),
			FullName:  claimString(claims, "full_name"),
			AvatarURL: claimString(claims, "avatar_url"),
			Role:      claimString(claims, "role"),
		}
		if identity.ID == "" {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"status": "error", "message": "Token has no user_id", "data": nil})
		}

		if users != nil {
			if err := users.Sync(c.UserContext(), identity); err != nil {
				log.Printf("⚠️ Could not refresh user %s: %v", identity.ID, err)
			}
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by Identify.
func CurrentIdentity(c *fiber.Ctx) models.Identity {
	identity, _ := c.Locals(identityKey).(models.Identity)
	return identity
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentIdentity(c).IsPrivileged() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
