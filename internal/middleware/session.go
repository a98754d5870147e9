package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// sessionLookup accepts the bearer header, the identity provider's session
// cookie and a query token for EventSource clients that cannot set headers.
const sessionLookup = "header:Authorization,cookie:__session,query:token"

// SessionRequired verifies the identity provider's session JWT. With a JWKS
// URL the keys are fetched once here, so build it once at startup. Without
// one, tokens are checked against SESSION_SIGNING_SECRET (HS256).
func SessionRequired(cfg *config.Config) fiber.Handler {
	unauthorized := func(c *fiber.Ctx, err error) error {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Unauthorized: invalid or expired session",
		})
	}

	jwtCfg := jwtware.Config{
		TokenLookup:  sessionLookup,
		AuthScheme:   "Bearer",
		ErrorHandler: unauthorized,
	}
	switch {
	case cfg.ClerkJWKSURL != "":
		jwtCfg.JWKSetURLs = []string{cfg.ClerkJWKSURL}
	case cfg.SessionSigningSecret != "":
		jwtCfg.SigningKey = jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.SessionSigningSecret)}
	default:
		slog.Warn("no session verification key configured, all authenticated routes will reject")
		return func(c *fiber.Ctx) error { return unauthorized(c, nil) }
	}
	return jwtware.New(jwtCfg)
}
