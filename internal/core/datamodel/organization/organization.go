package organization

import (
	"time"

	"gorm.io/gorm"
)

type Organization struct {
	ID          int64          `gorm:"primaryKey"`
	Name        string         `gorm:"column:name;uniqueIndex;not null"`
	Description string         `gorm:"column:description"`
	Address     string         `gorm:"column:address"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Organization) TableName() string {
	return "organizations"
}
