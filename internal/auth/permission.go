package auth

import (
	"fmt"
	"strings"

	"sickfits-be/internal/apperr"
)

// Permission is a capability tag granted to a user.
type Permission string

const (
	PermissionUser             Permission = "USER"
	PermissionAdmin            Permission = "ADMIN"
	PermissionItemCreate       Permission = "ITEMCREATE"
	PermissionItemUpdate       Permission = "ITEMUPDATE"
	PermissionItemDelete       Permission = "ITEMDELETE"
	PermissionPermissionUpdate Permission = "PERMISSIONUPDATE"
)

// AllPermissions lists every known permission in declaration order.
var AllPermissions = []Permission{
	PermissionUser,
	PermissionAdmin,
	PermissionItemCreate,
	PermissionItemUpdate,
	PermissionItemDelete,
	PermissionPermissionUpdate,
}

func (p Permission) IsValid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", apperr.Newf(apperr.KindValidation, "unknown permission %q", s)
	}
	return p, nil
}

// ParsePermissions parses every entry of raw, failing on the first unknown tag.
func ParsePermissions(raw []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(raw))
	for _, s := range raw {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func Strings(perms []Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// Principal is anything that holds a permission set.
type Principal interface {
	PermissionSet() []Permission
}

// Intersects reports whether granted and required share at least one permission.
func Intersects(granted []Permission, required ...Permission) bool {
	for _, g := range granted {
		for _, r := range required {
			if g == r {
				return true
			}
		}
	}
	return false
}

// Require succeeds iff p holds at least one of required. A nil principal never does.
func Require(p Principal, required ...Permission) error {
	var granted []Permission
	if p != nil {
		granted = p.PermissionSet()
	}
	if Intersects(granted, required...) {
		return nil
	}
	return apperr.Newf(apperr.KindForbidden,
		"you do not have sufficient permissions: need one of %s, you have %s",
		join(required), join(granted),
	)
}

func join(perms []Permission) string {
	if len(perms) == 0 {
		return "none"
	}
	return fmt.Sprintf("[%s]", strings.Join(Strings(perms), ", "))
}
