package enums

import (
	"fmt"
	"strings"
)

// UserRole maps to the users.role column.
type UserRole string

const (
	UserRoleCustomer   UserRole = "CUSTOMER"
	UserRoleRetailer   UserRole = "RETAILER"
	UserRoleWholesaler UserRole = "WHOLESALER"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleRetailer,
	UserRoleWholesaler,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid checks whether the role matches the canonical enum.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ShopType returns the shop type a role manages, if any.
func (r UserRole) ShopType() (ShopType, bool) {
	switch r {
	case UserRoleRetailer:
		return ShopTypeRetail, true
	case UserRoleWholesaler:
		return ShopTypeWholesale, true
	default:
		return "", false
	}
}

// ParseUserRole accepts case-insensitive input.
func ParseUserRole(value string) (UserRole, error) {
	normalized := UserRole(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
