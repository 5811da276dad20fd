package user

import (
	"time"

	"sickfits-be/internal/auth"
)

type User struct {
	ID               string
	Name             string
	Email            string
	Password         string
	Permissions      []auth.Permission
	ResetToken       *string
	ResetTokenExpiry *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) PermissionSet() []auth.Permission {
	if u == nil {
		return nil
	}
	return u.Permissions
}

// Identity projects the user onto the request identity.
func (u *User) Identity() *auth.Identity {
	return &auth.Identity{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Permissions: u.Permissions,
	}
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Permissions  []auth.Permission
}

type SignupParams struct {
	Email    string
	Password string
	Name     string
}

type ResetPasswordParams struct {
	ResetToken      string
	Password        string
	ConfirmPassword string
}
