package audit

import (
	"strconv"

	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint   `json:"id"`
	UserID      uint   `json:"user_id"`
	UserName    string `json:"user_name"`
	EntityType  string `json:"entity_type"`
	EntityID    uint   `json:"entity_id"`
	Action      string `json:"action"`
	Description string `json:"description"`
	BeforeData  string `json:"before_data"`
	AfterData   string `json:"after_data"`
	CreatedAt   string `json:"created_at"`
}

// GET /api/audit-logs
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		if page < 1 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20
		}

		query := database.DB.Model(&models.AuditLog{})

		if entityType := c.Query("entity_type"); entityType != "" {
			query = query.Where("entity_type = ?", entityType)
		}
		if entityIDStr := c.Query("entity_id"); entityIDStr != "" {
			entityID, err := strconv.Atoi(entityIDStr)
			if err != nil {
				return domain.Invalid("invalid entity_id")
			}
			query = query.Where("entity_id = ?", entityID)
		}

		var totalCount int64
		if err := query.Count(&totalCount).Error; err != nil {
			return err
		}

		var logs []models.AuditLog
		if err := query.
			Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&logs).Error; err != nil {
			return err
		}

		items := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			items = append(items, AuditLogResponse{
				ID:          l.ID,
				UserID:      l.UserID,
				UserName:    l.UserName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      string(l.Action),
				Description: l.Description,
				BeforeData:  l.BeforeData,
				AfterData:   l.AfterData,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"items":       items,
			"total_count": totalCount,
			"page":        page,
			"page_size":   pageSize,
		})
	}
}
