package models

import "time"

type OrganizationType string

const (
	OrgTypeProducer   OrganizationType = "producer"
	OrgTypeAggregator OrganizationType = "aggregator"
	OrgTypeExporter   OrganizationType = "exporter"
)

func ParseOrganizationType(s string) (OrganizationType, bool) {
	switch OrganizationType(s) {
	case OrgTypeProducer, OrgTypeAggregator, OrgTypeExporter:
		return OrganizationType(s), true
	}
	return "", false
}

type Organization struct {
	ID           uint             `gorm:"primaryKey"`
	Name         string           `gorm:"size:200;not null;unique"`
	Type         OrganizationType `gorm:"size:20;not null"`
	Address      string           `gorm:"size:255"`
	ContactEmail string           `gorm:"size:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Users []User           `gorm:"constraint:OnDelete:CASCADE"`
	Sites []ProductionSite `gorm:"constraint:OnDelete:CASCADE"`
}
