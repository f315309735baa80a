package models

import (
	"time"
)

const (
	RoleVisitor = "visitor"
	RoleAgency  = "agency"
	RoleAdmin   = "admin"
)

// User is the display record for a participant. Identities are issued
// elsewhere; this table only caches what conversations need to render.
type User struct {
	ID        string    `gorm:"size:64;primary_key" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	AvatarURL *string   `gorm:"size:512" json:"avatar_url,omitempty"`
	Role      string    `gorm:"size:20;not null;default:'visitor'" json:"role"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Identity is the resolved, trusted caller of a messaging operation.
type Identity struct {
	ID        string
	FullName  string
	AvatarURL string
	Role      string
}

func (i Identity) IsPrivileged() bool {
	return i.Role == RoleAdmin
}

func (i Identity) User() User {
	u := User{ID: i.ID, FullName: i.FullName, Role: i.Role}
	if i.AvatarURL != "" {
		avatar := i.AvatarURL
		u.AvatarURL = &avatar
	}
	if u.Role == "" {
		u.Role = RoleVisitor
	}
	return u
}
