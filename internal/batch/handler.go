package batch

import (
	"strconv"
	"strings"
	"time"

	"traceflow-backend/internal/auth"
	"traceflow-backend/internal/config"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateBatchRequest struct {
	ProductType     string  `json:"product_type"`
	StrainOrVariety string  `json:"strain_or_variety"`
	Quantity        float64 `json:"quantity"`
	UnitOfMeasure   string  `json:"unit_of_measure"`
	HarvestDate     string  `json:"harvest_date"` // "2026-01-15"
	SiteID          *uint   `json:"site_id"`
	OrganizationID  *uint   `json:"organization_id"` // admin only
}

type SplitBatchRequest struct {
	Splits []SplitDefRequest `json:"splits"`
}

type SplitDefRequest struct {
	Quantity        float64 `json:"quantity"`
	ProductType     string  `json:"product_type"`
	StrainOrVariety string  `json:"strain_or_variety"`
}

type UpdateBatchStatusRequest struct {
	Status string `json:"status"`
}

type BatchResponse struct {
	ID               uint    `json:"id"`
	OrganizationID   uint    `json:"organization_id"`
	OrganizationName string  `json:"organization_name"`
	SiteID           *uint   `json:"site_id"`
	PublicToken      string  `json:"public_token"`
	ProductType      string  `json:"product_type"`
	StrainOrVariety  string  `json:"strain_or_variety"`
	Quantity         float64 `json:"quantity"`
	UnitOfMeasure    string  `json:"unit_of_measure"`
	Status           string  `json:"status"`
	HarvestDate      string  `json:"harvest_date"`
	ProcessDate      *string `json:"process_date"`
	VerifyURL        string  `json:"verify_url"`
	CreatedAt        string  `json:"created_at"`
}

type LineageEdgeResponse struct {
	ParentBatchID     uint    `json:"parent_batch_id"`
	ChildBatchID      uint    `json:"child_batch_id"`
	QuantityAllocated float64 `json:"quantity_allocated"`
	CreatedAt         string  `json:"created_at"`
}

// verificationURL builds the public link external consumers use to check a
// batch by its token.
func verificationURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/" + token
}

func toBatchResponse(b models.Batch, verifyBase string) BatchResponse {
	var processDate *string
	if b.ProcessDate != nil {
		s := b.ProcessDate.Format("2006-01-02 15:04:05")
		processDate = &s
	}
	return BatchResponse{
		ID:               b.ID,
		OrganizationID:   b.OrganizationID,
		OrganizationName: b.Organization.Name,
		SiteID:           b.SiteID,
		PublicToken:      b.PublicToken,
		ProductType:      b.ProductType,
		StrainOrVariety:  b.StrainOrVariety,
		Quantity:         b.Quantity,
		UnitOfMeasure:    b.UnitOfMeasure,
		Status:           string(b.Status),
		HarvestDate:      b.HarvestDate.Format("2006-01-02"),
		ProcessDate:      processDate,
		VerifyURL:        verificationURL(verifyBase, b.PublicToken),
		CreatedAt:        b.CreatedAt.Format("2006-01-02 15:04:05"),
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

// Non-admins always act on their own organization; admins must name one.
func resolveOrgIDFromBodyOrRole(ident domain.Identity, bodyOrgID *uint) (uint, error) {
	if ident.Role != models.RoleAdmin {
		return ident.RequireOrganization()
	}
	if bodyOrgID == nil {
		return 0, domain.Invalid("organization_id is required")
	}
	return *bodyOrgID, nil
}

// POST /api/batches
func CreateBatchHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		orgID, err := resolveOrgIDFromBodyOrRole(ident, body.OrganizationID)
		if err != nil {
			return err
		}

		harvestDate, err := time.Parse("2006-01-02", body.HarvestDate)
		if err != nil {
			return domain.Invalid("harvest_date must be formatted 'YYYY-MM-DD'")
		}

		b, err := Create(CreateInput{
			OrganizationID:  orgID,
			ProductType:     body.ProductType,
			StrainOrVariety: body.StrainOrVariety,
			Quantity:        body.Quantity,
			UnitOfMeasure:   body.UnitOfMeasure,
			HarvestDate:     harvestDate,
			SiteID:          body.SiteID,
		}, ident)
		if err != nil {
			return err
		}

		if err := database.DB.Preload("Organization").First(b, b.ID).Error; err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toBatchResponse(*b, cfg.VerifyBaseURL))
	}
}

// POST /api/batches/:id/split
func SplitBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sourceID, err := c.ParamsInt("id")
		if err != nil || sourceID <= 0 {
			return domain.Invalid("invalid batch id")
		}

		var body SplitBatchRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		defs := make([]SplitDef, 0, len(body.Splits))
		for _, s := range body.Splits {
			defs = append(defs, SplitDef{
				Quantity:        s.Quantity,
				ProductType:     s.ProductType,
				StrainOrVariety: s.StrainOrVariety,
			})
		}

		childIDs, err := Split(uint(sourceID), defs, ident)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"child_batch_ids": childIDs,
		})
	}
}

// PUT /api/batches/:id/status
func UpdateBatchStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		batchID, err := c.ParamsInt("id")
		if err != nil || batchID <= 0 {
			return domain.Invalid("invalid batch id")
		}

		var body UpdateBatchStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		status, ok := models.ParseBatchStatus(body.Status)
		if !ok {
			return domain.Invalid("unknown batch status '%s'", body.Status)
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		if err := UpdateStatus(uint(batchID), status, ident); err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": "Batch status updated",
			"status":  status,
		})
	}
}

// GET /api/batches/:id
func GetBatchHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batchID, err := c.ParamsInt("id")
		if err != nil || batchID <= 0 {
			return domain.Invalid("invalid batch id")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		var b models.Batch
		if err := database.DB.Preload("Organization").First(&b, batchID).Error; err != nil {
			return domain.NotFound("batch", batchID)
		}

		if ident.Role != models.RoleAdmin {
			if ident.OrganizationID == nil || b.OrganizationID != *ident.OrganizationID {
				return domain.Unauthorized("you can only view batches from your organization")
			}
		}

		return c.JSON(toBatchResponse(b, cfg.VerifyBaseURL))
	}
}

// GET /api/batches
func ListBatchesHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		page, _ := strconv.Atoi(c.Query("page", "1"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
		if pageSize < 1 || pageSize > 100 {
			pageSize = 10
		}

		query := database.DB.Model(&models.Batch{}).Preload("Organization")

		if ident.Role != models.RoleAdmin {
			orgID, err := ident.RequireOrganization()
			if err != nil {
				return err
			}
			query = query.Where("organization_id = ?", orgID)
		} else if orgStr := c.Query("organization_id"); orgStr != "" {
			orgID, err := strconv.Atoi(orgStr)
			if err != nil {
				return domain.Invalid("invalid organization_id")
			}
			query = query.Where("organization_id = ?", orgID)
		}

		if statusStr := c.Query("status"); statusStr != "" {
			status, ok := models.ParseBatchStatus(statusStr)
			if !ok {
				return domain.Invalid("unknown batch status '%s'", statusStr)
			}
			query = query.Where("status = ?", status)
		}

		var totalCount int64
		if err := query.Count(&totalCount).Error; err != nil {
			return err
		}

		var batches []models.Batch
		if err := query.
			Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&batches).Error; err != nil {
			return err
		}

		items := make([]BatchResponse, 0, len(batches))
		for _, b := range batches {
			items = append(items, toBatchResponse(b, cfg.VerifyBaseURL))
		}

		return c.JSON(fiber.Map{
			"items":       items,
			"total_count": totalCount,
			"page":        page,
			"page_size":   pageSize,
		})
	}
}

// GET /api/batches/:id/lineage
func LineageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		batchID, err := c.ParamsInt("id")
		if err != nil || batchID <= 0 {
			return domain.Invalid("invalid batch id")
		}

		ident, err := callerIdentity(c)
		if err != nil {
			return err
		}

		var b models.Batch
		if err := database.DB.First(&b, batchID).Error; err != nil {
			return domain.NotFound("batch", batchID)
		}

		if ident.Role != models.RoleAdmin {
			if ident.OrganizationID == nil || b.OrganizationID != *ident.OrganizationID {
				return domain.Unauthorized("you can only view batches from your organization")
			}
		}

		ancestors := make([]LineageEdgeResponse, 0)
		for edge, err := range Ancestors(database.DB, b.ID) {
			if err != nil {
				return err
			}
			ancestors = append(ancestors, toLineageEdgeResponse(edge))
		}

		descendants := make([]LineageEdgeResponse, 0)
		for edge, err := range Descendants(database.DB, b.ID) {
			if err != nil {
				return err
			}
			descendants = append(descendants, toLineageEdgeResponse(edge))
		}

		return c.JSON(fiber.Map{
			"batch_id":    b.ID,
			"ancestors":   ancestors,
			"descendants": descendants,
		})
	}
}

func toLineageEdgeResponse(e models.BatchLineage) LineageEdgeResponse {
	return LineageEdgeResponse{
		ParentBatchID:     e.ParentBatchID,
		ChildBatchID:      e.ChildBatchID,
		QuantityAllocated: e.QuantityAllocated,
		CreatedAt:         e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/verify/:token
// Public endpoint: external consumers check a batch by its public token.
// Exposes no internal ids.
func VerifyBatchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Params("token")
		if token == "" {
			return domain.Invalid("token is required")
		}

		var b models.Batch
		if err := database.DB.Preload("Organization").
			Where("public_token = ?", token).
			First(&b).Error; err != nil {
			return domain.NotFound("batch", token)
		}

		return c.JSON(fiber.Map{
			"product_type":      b.ProductType,
			"strain_or_variety": b.StrainOrVariety,
			"status":            b.Status,
			"unit_of_measure":   b.UnitOfMeasure,
			"organization_name": b.Organization.Name,
			"organization_type": b.Organization.Type,
			"harvest_date":      b.HarvestDate.Format("2006-01-02"),
		})
	}
}
