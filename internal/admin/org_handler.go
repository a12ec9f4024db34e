package admin

import (
	"strings"

	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateOrganizationRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"` // producer | aggregator | exporter
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email"`
}

type OrganizationResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Address      string `json:"address"`
	ContactEmail string `json:"contact_email"`
	CreatedAt    string `json:"created_at"`
}

func toOrganizationResponse(o models.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:           o.ID,
		Name:         o.Name,
		Type:         string(o.Type),
		Address:      o.Address,
		ContactEmail: o.ContactEmail,
		CreatedAt:    o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/admin/organizations
func CreateOrganizationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrganizationRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if len(body.Name) < 2 {
			return domain.Invalid("organization name must be at least 2 characters")
		}

		orgType, ok := models.ParseOrganizationType(body.Type)
		if !ok {
			return domain.Invalid("unknown organization type '%s'", body.Type)
		}

		org := models.Organization{
			Name:         body.Name,
			Type:         orgType,
			Address:      body.Address,
			ContactEmail: body.ContactEmail,
		}

		if err := database.DB.Create(&org).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create organization")
		}

		return c.Status(fiber.StatusCreated).JSON(toOrganizationResponse(org))
	}
}

// GET /api/admin/organizations
func ListOrganizationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var orgs []models.Organization
		if err := database.DB.Order("name").Find(&orgs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list organizations")
		}

		resp := make([]OrganizationResponse, 0, len(orgs))
		for _, o := range orgs {
			resp = append(resp, toOrganizationResponse(o))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/organizations/:id
func GetOrganizationHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return domain.Invalid("invalid organization id")
		}

		var org models.Organization
		if err := database.DB.First(&org, id).Error; err != nil {
			return domain.NotFound("organization", id)
		}

		return c.JSON(toOrganizationResponse(org))
	}
}

type CreateSiteRequest struct {
	Name         string `json:"name"`
	LocationText string `json:"location_text"`
}

type SiteResponse struct {
	ID             uint   `json:"id"`
	OrganizationID uint   `json:"organization_id"`
	Name           string `json:"name"`
	LocationText   string `json:"location_text"`
}

// POST /api/admin/organizations/:id/sites
func CreateSiteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID, err := c.ParamsInt("id")
		if err != nil || orgID <= 0 {
			return domain.Invalid("invalid organization id")
		}

		var body CreateSiteRequest
		if err := c.BodyParser(&body); err != nil {
			return domain.Invalid("invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return domain.Invalid("site name is required")
		}

		var org models.Organization
		if err := database.DB.First(&org, orgID).Error; err != nil {
			return domain.NotFound("organization", orgID)
		}

		site := models.ProductionSite{
			OrganizationID: org.ID,
			Name:           body.Name,
			LocationText:   body.LocationText,
		}
		if err := database.DB.Create(&site).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create site")
		}

		return c.Status(fiber.StatusCreated).JSON(SiteResponse{
			ID:             site.ID,
			OrganizationID: site.OrganizationID,
			Name:           site.Name,
			LocationText:   site.LocationText,
		})
	}
}

// GET /api/admin/organizations/:id/sites
func ListSitesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orgID, err := c.ParamsInt("id")
		if err != nil || orgID <= 0 {
			return domain.Invalid("invalid organization id")
		}

		var sites []models.ProductionSite
		if err := database.DB.Where("organization_id = ?", orgID).Order("name").Find(&sites).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list sites")
		}

		resp := make([]SiteResponse, 0, len(sites))
		for _, s := range sites {
			resp = append(resp, SiteResponse{
				ID:             s.ID,
				OrganizationID: s.OrganizationID,
				Name:           s.Name,
				LocationText:   s.LocationText,
			})
		}
		return c.JSON(resp)
	}
}
