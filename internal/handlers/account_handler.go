package handlers

import (
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/auth"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AccountHandler serves the signed-in user's own account and profile.
type AccountHandler struct {
	users     *services.UserService
	students  *services.StudentService
	directory *services.DirectoryService
}

func NewAccountHandler(users *services.UserService, students *services.StudentService, directory *services.DirectoryService) *AccountHandler {
	return &AccountHandler{users: users, students: students, directory: directory}
}

func (h *AccountHandler) Me(c *fiber.Ctx) error {
	user := auth.Account(c)
	if user == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	me, err := h.users.Me(c.UserContext(), user)
	if err != nil {
		return serviceError(c, err, "Failed to load account")
	}
	return c.JSON(me)
}

func (h *AccountHandler) CompleteProfile(c *fiber.Ctx) error {
	user := auth.Account(c)
	if user == nil || user.Role != models.RoleStudent {
		return errorJSON(c, fiber.StatusForbidden, "Student account required")
	}
	var req dto.CompleteProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	st, err := h.students.CompleteProfile(c.UserContext(), user.ID, req)
	if err != nil {
		return serviceError(c, err, "Failed to save profile")
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

// Departments is readable by any signed-in user for the profile form.
func (h *AccountHandler) Departments(c *fiber.Ctx) error {
	list, err := h.directory.ListDepartments(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to list departments")
	}
	return c.JSON(list)
}
