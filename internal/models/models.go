package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// AllRoles is the closed set of recognized roles. Access checks are pure
// set-membership; there is no hierarchy between roles.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleUser}

func ValidRole(r Role) bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"     json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	OtherName    string     `json:"other_name"`
	Phone        string     `json:"phone"`
	Email        string     `gorm:"uniqueIndex;not null"     json:"email"`
	Birthdate    *time.Time `json:"birthdate"`
	IsActive     bool       `gorm:"default:true"             json:"is_active"`
	Role         Role       `gorm:"not null;default:user"    json:"role"`
	PasswordHash string     `gorm:"not null"                 json:"-"`
}

// RevokedToken is one blacklist entry. Any entry for a user_id invalidates
// every token of that user until the entries are cleared on the next
// successful login.
type RevokedToken struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Token  string    `gorm:"not null"                 json:"token"`
}
