package users

import (
	"fmt"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// AccountStatus represents the lifecycle state of a principal. Principals are
// never deleted, only transitioned between statuses.
type AccountStatus string

const (
	StatusActive     AccountStatus = "ACTIVE"
	StatusIncomplete AccountStatus = "INCOMPLETE" // created via external identity, profile not yet completed
	StatusDisabled   AccountStatus = "DISABLED"
)

// RoleType represents a marketplace role carried in access token claims
type RoleType string

const (
	RoleDonor    RoleType = "DONOR"
	RoleCourier  RoleType = "COURIER"
	RoleReceiver RoleType = "RECEIVER"
	RoleAdmin    RoleType = "ADMIN"
)

// Principal is the identity subject tokens are issued for.
type Principal struct {
	ID           string        `json:"id,omitempty"`    // Unique identifier for the principal
	Email        string        `json:"email,omitempty"` // Principal's email address
	PasswordHash string        `json:"-"`               // Hashed password - never serialize; empty for external-identity accounts
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	Roles        []RoleType    `json:"roles,omitempty"`
	Status       AccountStatus `json:"status,omitempty"`
	ExternalID   string        `json:"external_id,omitempty"` // Subject from the external identity provider
	DateJoined   time.Time     `json:"date_joined,omitempty"`
	LastLogin    time.Time     `json:"last_login,omitempty"`
}

// RoleStrings returns the principal's roles as plain strings for token claims
func (p *Principal) RoleStrings() []string {
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}
	return roles
}

// Disabled reports whether the principal may no longer authenticate
func (p *Principal) Disabled() bool {
	return p.Status != StatusActive && p.Status != StatusIncomplete
}

// HasRole checks if the principal carries a specific role
func (p *Principal) HasRole(role RoleType) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
