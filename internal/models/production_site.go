package models

import "time"

// ProductionSite: a physical production location owned by one organization.
type ProductionSite struct {
	ID             uint `gorm:"primaryKey"`
	OrganizationID uint `gorm:"index;not null"`
	Organization   Organization
	Name           string `gorm:"size:200;not null"`
	LocationText   string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
