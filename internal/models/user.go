package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleProducer   UserRole = "producer"
	RoleAggregator UserRole = "aggregator"
	RoleExporter   UserRole = "exporter"
)

func ParseUserRole(s string) (UserRole, bool) {
	switch UserRole(s) {
	case RoleAdmin, RoleProducer, RoleAggregator, RoleExporter:
		return UserRole(s), true
	}
	return "", false
}

type User struct {
	ID             uint  `gorm:"primaryKey"`
	OrganizationID *uint `gorm:"index"` // nil for platform admins
	Organization   *Organization
	FullName       string   `gorm:"size:100;not null"`
	Email          string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash   string   `gorm:"size:255;not null"`
	Role           UserRole `gorm:"size:20;not null"`
	IsActive       bool     `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
