package domain

import "time"

type UserID string

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type User struct {
	ID                 UserID    `json:"id"`
	Username           string    `json:"username"`
	DisplayName        string    `json:"displayName"`
	PasswordHash       string    `json:"-"`
	Role               UserRole  `json:"role"`
	Disabled           bool      `json:"disabled"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
}

// PublicUser is the projection exposed to other authenticated users.
type PublicUser struct {
	ID          UserID   `json:"id"`
	DisplayName string   `json:"displayName"`
	Role        UserRole `json:"role"`
	Disabled    bool     `json:"disabled"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, DisplayName: u.DisplayName, Role: u.Role, Disabled: u.Disabled}
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
