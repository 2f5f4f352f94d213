package service

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// TokenService validates bearer tokens issued by the identity provider.
// Tokens are HS256 signed with a secret shared with the provider.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a new TokenService instance
func NewTokenService(jwtSecret string) *TokenService {
	return &TokenService{secret: []byte(jwtSecret)}
}

// ValidateToken parses and verifies token and returns its claims
func (s *TokenService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == 0 || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing user claims", ErrInvalidToken)
	}
	return claims, nil
}

// Authorizer decides whether a viewer may change a recipe
type Authorizer interface {
	CanModifyRecipe(viewer *types.Viewer, recipe *models.Recipe) bool
}

// AuthorOrAdmin lets the recipe's author and administrators modify it
type AuthorOrAdmin struct{}

func (AuthorOrAdmin) CanModifyRecipe(viewer *types.Viewer, recipe *models.Recipe) bool {
	if viewer == nil || recipe == nil {
		return false
	}
	return viewer.IsAdmin || recipe.AuthorID == viewer.UserID
}
