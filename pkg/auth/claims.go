package auth

import (
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the JWT claims accepted by the service. The subject is the
// caller's identity.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Identity parses the subject as a UUID.
func (c Claims) Identity() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("subject %q is not an identity: %w", c.Subject, err)
	}
	return id, nil
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Role constants. Ledger authority is decided by the program state, not by
// roles; roles only gate operator tooling.
const (
	RoleOperator = "operator"
	RoleBorrower = "borrower"
)
