package types

import "github.com/golang-jwt/jwt/v5"

// TokenClaims represents the claims in a JWT issued by the identity provider
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

// Viewer is the authenticated caller of a request. A nil *Viewer is anonymous.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

// ID returns the viewer's user id, or zero for anonymous viewers
func (v *Viewer) ID() uint {
	if v == nil {
		return 0
	}
	return v.UserID
}
