package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User carries the account fields the moderation workflow reads and writes.
// Profile and credential data live with the authentication service.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Role              string     `gorm:"size:20;not null;default:'user'" json:"role"`
	ModerationStrikes int        `gorm:"not null;default:0" json:"moderation_strikes"`
	IsBanned          bool       `gorm:"not null;default:false;index" json:"is_banned"`
	BanReason         string     `gorm:"type:text" json:"ban_reason,omitempty"`
	BannedAt          *time.Time `json:"banned_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
