package middleware

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

func deny(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

// ResolveAccount loads (or provisions) the local user behind the session.
// Identity ids listed in ADMIN_USER_IDS are promoted to admin on sight.
func ResolveAccount(users *services.UserService, cfg *config.Config) fiber.Handler {
	adminIDs := cfg.AdminIDs()

	return func(c *fiber.Ctx) error {
		sub, err := auth.Subject(c)
		if err != nil {
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		role := auth.SessionRole(c)
		if contains(adminIDs, sub) {
			role = models.RoleAdmin
		}
		user, err := users.EnsureAccount(c.UserContext(), sub, role)
		if err != nil {
			slog.Error("failed to resolve account", "error", err.Error(), "request_id", requestID(c))
			return deny(c, fiber.StatusInternalServerError, "Failed to load account")
		}
		if role == models.RoleAdmin && user.Role != models.RoleAdmin {
			if err := users.SetRole(c.UserContext(), user.ID, models.RoleAdmin); err != nil {
				slog.Error("failed to promote bootstrap admin", "user_id", user.ID.String(), "error", err.Error())
			} else {
				user.Role = models.RoleAdmin
			}
		}

		auth.SetAccount(c, user)
		return c.Next()
	}
}

// RequireRole admits accounts holding any of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.Account(c)
		if user == nil {
			return deny(c, fiber.StatusUnauthorized, "Unauthorized")
		}
		if !contains(roles, user.Role) {
			return deny(c, fiber.StatusForbidden, "Insufficient role")
		}
		return c.Next()
	}
}

// RequireVerifiedStudent gates report submission on a completed and
// admin-verified profile.
func RequireVerifiedStudent(students *services.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.Account(c)
		if user == nil || user.Role != models.RoleStudent {
			return deny(c, fiber.StatusForbidden, "Student account required")
		}
		st, err := students.GetByUserID(c.UserContext(), user.ID)
		if errors.Is(err, services.ErrStudentNotFound) {
			return deny(c, fiber.StatusForbidden, "Complete your profile first")
		}
		if err != nil {
			return deny(c, fiber.StatusInternalServerError, "Failed to load profile")
		}
		if !st.CanReport() {
			return deny(c, fiber.StatusForbidden, "Profile awaiting verification")
		}
		auth.SetStudent(c, st)
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
