package identity

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the host platform. The subject is
// the platform user id; roles carry the admin capability.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// UserID parses the numeric platform user id from the subject claim.
// Returns 0 when the subject is absent or not numeric.
func (c *Claims) UserID() int64 {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// IsAdmin reports whether the claims grant tour administration rights.
func (c *Claims) IsAdmin() bool {
	for _, r := range c.Roles {
		if r == "admin" || r == "tour_admin" {
			return true
		}
	}
	return false
}
