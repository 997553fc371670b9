package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is an identity's privilege level.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Identity is a principal. Immutable once provisioned.
type Identity struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// Validate validates the identity for persistence. Defaults an empty role to standard.
func (i *Identity) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(i.Username) == "" {
		return errors.New("username is required")
	}
	switch i.Role {
	case "":
		i.Role = RoleStandard
	case RoleStandard, RoleAdmin:
	default:
		return errors.New("role must be standard or admin")
	}
	return nil
}

// SecretScheme says how a credential's secret is stored.
type SecretScheme string

const (
	// SchemeBcrypt stores a salted bcrypt digest.
	SchemeBcrypt SecretScheme = "bcrypt"
	// SchemePlaintext stores the secret as given. Only the insecure demo variant writes these.
	SchemePlaintext SecretScheme = "plaintext"
)

// Credential is an identity's login secret under one scheme.
type Credential struct {
	IdentityID string       `json:"identity_id"`
	Scheme     SecretScheme `json:"scheme"`
	Secret     string       `json:"secret"`
}
