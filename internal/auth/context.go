// Package auth carries the authenticated session and the resolved local
// account through a request.
package auth

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionKey = "user"
	accountKey = "account"
	studentKey = "student"
)

var ErrNoSession = errors.New("no session in context")

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals(sessionKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoSession
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return mc, nil
}

// Subject returns the identity provider's user id from the session token.
func Subject(c *fiber.Ctx) (string, error) {
	mc, err := claims(c)
	if err != nil {
		return "", err
	}
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub claim")
	}
	return sub, nil
}

// SessionRole reads the role a session token carries, either as a top-level
// "role" claim or inside "metadata"/"public_metadata". Defaults to student.
func SessionRole(c *fiber.Ctx) string {
	mc, err := claims(c)
	if err != nil {
		return models.RoleStudent
	}
	if r, ok := mc["role"].(string); ok && models.ValidRole(r) {
		return r
	}
	for _, key := range []string{"metadata", "public_metadata"} {
		if meta, ok := mc[key].(map[string]interface{}); ok {
			return identity.RoleFromMetadata(meta)
		}
	}
	return models.RoleStudent
}

func SetAccount(c *fiber.Ctx, u *models.User) { c.Locals(accountKey, u) }

// Account returns the local user resolved for this request, or nil.
func Account(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(accountKey).(*models.User)
	return u
}

func SetStudent(c *fiber.Ctx, s *models.Student) { c.Locals(studentKey, s) }

func Student(c *fiber.Ctx) *models.Student {
	s, _ := c.Locals(studentKey).(*models.Student)
	return s
}
