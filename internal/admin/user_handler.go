package admin

import (
	"strings"

	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // producer | aggregator | exporter
}

type UserResponse struct {
	ID             uint   `json:"id"`
	OrganizationID *uint  `json:"organization_id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	IsActive       bool   `json:"is_active"`
}

// POST /api/admin/organizations/:id/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID, err := c.ParamsInt("id")
		if err != nil || orgID <= 0 {
			return domain.Invalid("invalid organization id")
		}

		var body CreateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" || body.FullName == "" {
			return domain.Invalid("full name, email and password are required")
		}

		role, ok := models.ParseUserRole(body.Role)
		if !ok || role == models.RoleAdmin {
			return domain.Invalid("role must be one of producer, aggregator, exporter")
		}

		var org models.Organization
		if err := database.DB.First(&org, orgID).Error; err != nil {
			return domain.NotFound("organization", orgID)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			OrganizationID: &org.ID,
			FullName:       body.FullName,
			Email:          body.Email,
			PasswordHash:   string(hash),
			Role:           role,
			IsActive:       true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
	}
}

// GET /api/admin/organizations/:id/users
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID, err := c.ParamsInt("id")
		if err != nil || orgID <= 0 {
			return domain.Invalid("invalid organization id")
		}

		var users []models.User
		if err := database.DB.Where("organization_id = ?", orgID).Order("full_name").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list users")
		}

		resp := make([]UserResponse, 0, len(users))
		for _, u := range users {
			resp = append(resp, toUserResponse(u))
		}
		return c.JSON(resp)
	}
}

func toUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		FullName:       u.FullName,
		Email:          u.Email,
		Role:           string(u.Role),
		IsActive:       u.IsActive,
	}
}
