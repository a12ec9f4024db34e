package transfer

import (
	"strconv"

	"traceflow-backend/internal/auth"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type InitiateTransferRequest struct {
	BatchID          uint    `json:"batch_id"`
	ToOrganizationID uint    `json:"to_organization_id"`
	Quantity         float64 `json:"quantity"`
}

type TransferResponse struct {
	ID                   uint    `json:"id"`
	BatchID              uint    `json:"batch_id"`
	ProductType          string  `json:"product_type"`
	FromOrganizationID   uint    `json:"from_organization_id"`
	FromOrganizationName string  `json:"from_organization_name"`
	ToOrganizationID     uint    `json:"to_organization_id"`
	ToOrganizationName   string  `json:"to_organization_name"`
	Quantity             float64 `json:"quantity"`
	Status               string  `json:"status"`
	InitiatedAt          string  `json:"initiated_at"`
	CompletedAt          *string `json:"completed_at"`
}

func toTransferResponse(t models.Transfer) TransferResponse {
	var completedAt *string
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format("2006-01-02 15:04:05")
		completedAt = &s
	}
	return TransferResponse{
		ID:                   t.ID,
		BatchID:              t.BatchID,
		ProductType:          t.Batch.ProductType,
		FromOrganizationID:   t.FromOrganizationID,
		FromOrganizationName: t.FromOrganization.Name,
		ToOrganizationID:     t.ToOrganizationID,
		ToOrganizationName:   t.ToOrganization.Name,
		Quantity:             t.QuantityTransferred,
		Status:               string(t.Status),
		InitiatedAt:          t.InitiatedAt.Format("2006-01-02 15:04:05"),
		CompletedAt:          completedAt,
	}
}

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	userIDVal := c.Locals(auth.CtxUserIDKey)
	userID, ok := userIDVal.(uint)
	if !ok {
		return domain.Identity{}, fiber.NewError(fiber.StatusForbidden, "User information missing")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return domain.Identity{}, fiber.NewError(fiber.StatusInternalServerError, "User not found")
	}

	role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

	var orgID *uint
	if p, ok := c.Locals(auth.CtxOrgIDKey).(*uint); ok && p != nil {
		orgID = p
	}

	return domain.Identity{UserID: userID, UserName: user.FullName, OrganizationID: orgID, Role: role}, nil
}

// POST /api/transfers
func InitiateTransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body InitiateTransferRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}
		if body.BatchID == 0 || body.ToOrganizationID == 0 {
			return domain.Invalid("batch_id and to_organization_id are required")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		t, err := Initiate(body.BatchID, body.ToOrganizationID, body.Quantity, ident)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":     t.ID,
			"status": t.Status,
		})
	}
}

// GET /api/transfers
func ListTransfersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		query := database.DB.Model(&models.Transfer{}).
			Preload("Batch").
			Preload("FromOrganization").
			Preload("ToOrganization")

		// Non-admins see only transfers touching their organization.
		if ident.Role != models.RoleAdmin {
			orgID, err := ident.RequireOrganization()
			if err != nil {
				return err
			}
			query = query.Where("from_organization_id = ? OR to_organization_id = ?", orgID, orgID)
		}

		if batchStr := c.Query("batch_id"); batchStr != "" {
			batchID, err := strconv.Atoi(batchStr)
			if err != nil {
				return domain.Invalid("invalid batch_id")
			}
			query = query.Where("batch_id = ?", batchID)
		}

		if statusStr := c.Query("status"); statusStr != "" {
			status, ok := models.ParseTransferStatus(statusStr)
			if !ok {
				return domain.Invalid("unknown transfer status '%s'", statusStr)
			}
			query = query.Where("status = ?", status)
		}

		var transfers []models.Transfer
		if err := query.Order("initiated_at DESC, id DESC").Find(&transfers).Error; err != nil {
			return err
		}

		resp := make([]TransferResponse, 0, len(transfers))
		for _, t := range transfers {
			resp = append(resp, toTransferResponse(t))
		}

		return c.JSON(resp)
	}
}

// PUT /api/transfers/:id/accept
func AcceptTransferHandler() fiber.Handler {
	return transferAction(Accept, "Transfer accepted")
}

// PUT /api/transfers/:id/cancel
func CancelTransferHandler() fiber.Handler {
	return transferAction(Cancel, "Transfer cancelled")
}

// PUT /api/transfers/:id/reject
func RejectTransferHandler() fiber.Handler {
	return transferAction(Reject, "Transfer rejected")
}

func transferAction(action func(uint, domain.Identity) error, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		transferID, err := c.ParamsInt("id")
		if err != nil || transferID <= 0 {
			return domain.Invalid("invalid transfer id")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		if err := action(uint(transferID), ident); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message":     message,
			"transfer_id": transferID,
		})
	}
}
