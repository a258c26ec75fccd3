package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brukd/attend/internal/shared/config"
)

// tokenClaims is the JWT payload shape the API middleware expects.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserType    string   `json:"user_type"`
	ClinicID    string   `json:"clinic_id,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"session_id"`
}

// TokenIssuer signs access tokens for staff and patient sessions.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a token issuer from the auth configuration.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.TokenTTL,
	}
}

// Issue signs a token for the given user. Permissions are derived from roles.
func (t *TokenIssuer) Issue(userID, userType, clinicID string, roles []Role) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(t.ttl)

	roleNames := make([]string, 0, len(roles))
	permSet := make(map[Permission]bool)
	for _, role := range roles {
		roleNames = append(roleNames, string(role))
		for _, perm := range RolePermissions[role] {
			permSet[perm] = true
		}
	}
	permissions := make([]string, 0, len(permSet))
	for perm := range permSet {
		permissions = append(permissions, string(perm))
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{"attend"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserType:    userType,
		ClinicID:    clinicID,
		Roles:       roleNames,
		Permissions: permissions,
		SessionID:   uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}
