package models

import "time"

// Category groups applications. Name is unique and matched case-sensitively.
// ApplicationCount is filled by list queries and not stored.
type Category struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"uniqueIndex;size:200;not null" json:"name"`
	Slug             string    `gorm:"size:220;index" json:"slug"`
	Description      string    `gorm:"type:text" json:"description"`
	ApplicationCount int64     `gorm:"-" json:"application_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }
