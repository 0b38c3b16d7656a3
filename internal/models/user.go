package models

import "time"

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// User represents a catalog operator or guest account
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	Email      string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password   string     `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Badge      string     `gorm:"size:100" json:"badge"`
	Phone      string     `gorm:"size:50" json:"phone"`
	Department string     `gorm:"size:100" json:"department"`
	Role       string     `gorm:"size:20;default:guest;index" json:"role"` // admin, guest
	LastLogin  *time.Time `json:"last_login"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleGuest
}
