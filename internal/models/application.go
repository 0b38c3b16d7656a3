package models

import "time"

const (
	ApplicationStatusActive   = "active"
	ApplicationStatusInactive = "inactive"

	DefaultApplicationVersion = "1.0.0"
)

// Application is a downloadable catalog entry. The installer file is optional;
// its fields are null until one is uploaded.
type Application struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	FullName      string    `gorm:"size:500;not null" json:"full_name"`
	CategoryID    uint      `gorm:"not null;index" json:"category_id"`
	Category      *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	IconID        *uint     `gorm:"index" json:"icon_id"`
	Icon          *Icon     `gorm:"foreignKey:IconID" json:"icon"`
	FileName      *string   `gorm:"size:255" json:"file_name"`
	FilePath      *string   `gorm:"size:500" json:"file_path"`
	FileSize      *int64    `json:"file_size"`
	FileType      *string   `gorm:"size:100" json:"file_type"`
	Version       string    `gorm:"size:50;default:1.0.0" json:"version"`
	Description   string    `gorm:"type:text" json:"description"`
	Status        string    `gorm:"size:20;default:active;index" json:"status"` // active, inactive
	DownloadCount int64     `gorm:"not null;default:0" json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

// ValidApplicationStatus reports whether s is a known status value.
func ValidApplicationStatus(s string) bool {
	return s == ApplicationStatusActive || s == ApplicationStatusInactive
}
