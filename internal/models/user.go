package models

import (
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserAccount represents a user in the system
type UserAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Role      string    `gorm:"size:20;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for UserAccount model
func (UserAccount) TableName() string {
	return "user_accounts"
}

// IsAdmin reports whether the account carries the admin role
func (u UserAccount) IsAdmin() bool {
	return u.Role == RoleAdmin
}
