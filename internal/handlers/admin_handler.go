package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/surokha-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	users          *services.UserService
	students       *services.StudentService
	correspondents *services.CorrespondentService
	directory      *services.DirectoryService
}

func NewAdminHandler(users *services.UserService, students *services.StudentService, correspondents *services.CorrespondentService, directory *services.DirectoryService) *AdminHandler {
	return &AdminHandler{users: users, students: students, correspondents: correspondents, directory: directory}
}

// withID parses :id and the JSON body into req before calling fn.
func withID[T any](c *fiber.Ctx, fn func(id uuid.UUID, req T) error) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid ID")
	}
	var req T
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}
	return fn(id, req)
}

// Departments

func (h *AdminHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	d, err := h.directory.CreateDepartment(c.UserContext(), req)
	if err != nil {
		return serviceError(c, err, "Failed to create department")
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

func (h *AdminHandler) UpdateDepartment(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.UpdateDepartmentRequest) error {
		d, err := h.directory.UpdateDepartment(c.UserContext(), id, req)
		if err != nil {
			return serviceError(c, err, "Failed to update department")
		}
		return c.JSON(d)
	})
}

func (h *AdminHandler) DeleteDepartment(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid ID")
	}
	if err := h.directory.DeleteDepartment(c.UserContext(), id); err != nil {
		return serviceError(c, err, "Failed to delete department")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Proctors

func (h *AdminHandler) ListProctors(c *fiber.Ctx) error {
	list, err := h.directory.ListProctors(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return serviceError(c, err, "Failed to list proctors")
	}
	return c.JSON(list)
}

func (h *AdminHandler) CreateProctor(c *fiber.Ctx) error {
	var req dto.CreateProctorRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	p, err := h.directory.CreateProctor(c.UserContext(), req)
	if err != nil {
		return serviceError(c, err, "Failed to create proctor")
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *AdminHandler) UpdateProctor(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.UpdateProctorRequest) error {
		p, err := h.directory.UpdateProctor(c.UserContext(), id, req)
		if err != nil {
			return serviceError(c, err, "Failed to update proctor")
		}
		return c.JSON(p)
	})
}

func (h *AdminHandler) DeleteProctor(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid ID")
	}
	if err := h.directory.DeleteProctor(c.UserContext(), id); err != nil {
		return serviceError(c, err, "Failed to delete proctor")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Students

func (h *AdminHandler) ListStudents(c *fiber.Ctx) error {
	list, err := h.students.List(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to list students")
	}
	return c.JSON(list)
}

func (h *AdminHandler) PendingStudents(c *fiber.Ctx) error {
	list, err := h.students.ListPendingVerification(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to list students")
	}
	return c.JSON(list)
}

func (h *AdminHandler) VerifyStudent(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.VerifyRequest) error {
		st, err := h.students.Verify(c.UserContext(), id, req.IsVerified)
		if err != nil {
			return serviceError(c, err, "Failed to verify student")
		}
		return c.JSON(st)
	})
}

func (h *AdminHandler) UpdateStudent(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.UpdateStudentRequest) error {
		st, err := h.students.Update(c.UserContext(), id, req)
		if err != nil {
			return serviceError(c, err, "Failed to update student")
		}
		return c.JSON(st)
	})
}

// Correspondents

func (h *AdminHandler) ListCorrespondents(c *fiber.Ctx) error {
	list, err := h.correspondents.List(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Failed to list correspondents")
	}
	return c.JSON(list)
}

// InviteCorrespondent reports a partial failure as 502 with the failed step,
// returning the correspondent row when one was created.
func (h *AdminHandler) InviteCorrespondent(c *fiber.Ctx) error {
	var req dto.InviteCorrespondentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	corr, err := h.correspondents.Invite(c.UserContext(), req)
	var partial *services.PartialInviteError
	if errors.As(err, &partial) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":         true,
			"message":       "Account created but invite did not complete: " + partial.Step,
			"step":          partial.Step,
			"external_id":   partial.ExternalID,
			"correspondent": corr,
		})
	}
	if err != nil {
		return serviceError(c, err, "Failed to invite correspondent")
	}
	return c.Status(fiber.StatusCreated).JSON(corr)
}

func (h *AdminHandler) UpdateCorrespondent(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.UpdateCorrespondentRequest) error {
		corr, err := h.correspondents.Update(c.UserContext(), id, req)
		if err != nil {
			return serviceError(c, err, "Failed to update correspondent")
		}
		return c.JSON(corr)
	})
}

// Users

func (h *AdminHandler) VerifyUser(c *fiber.Ctx) error {
	return withID(c, func(id uuid.UUID, req dto.VerifyRequest) error {
		if err := h.users.SetVerified(c.UserContext(), id, req.IsVerified); err != nil {
			return serviceError(c, err, "Failed to verify user")
		}
		return c.JSON(dto.OKResponse{OK: true})
	})
}
