package models

import "time"

const (
	IconTypeSystem = "system"
	IconTypeCustom = "custom"
)

// Icon is either a built-in symbolic icon or an uploaded image.
// File fields are set only for custom icons.
type Icon struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	IconKey   string    `gorm:"size:200;not null;index" json:"icon_key"`
	Category  string    `gorm:"size:100;index" json:"category"`
	Type      string    `gorm:"size:20;not null;default:system;index" json:"type"` // system, custom
	FilePath  *string   `gorm:"size:500" json:"file_path"`
	FileName  *string   `gorm:"size:255" json:"file_name"`
	FileSize  *int64    `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Icon) TableName() string { return "icons" }

func (i *Icon) IsCustom() bool { return i.Type == IconTypeCustom }
