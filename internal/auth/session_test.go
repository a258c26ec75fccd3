package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brukd/attend/internal/shared/config"
)

func testIssuer() *TokenIssuer {
	return NewTokenIssuer(config.AuthConfig{
		JWTSecret: "test-secret",
		Issuer:    "attend-test",
		TokenTTL:  time.Hour,
	})
}

// TestIssueSignedToken tests that issued tokens verify with the shared secret
// and carry the claims the API middleware reads.
func TestIssueSignedToken(t *testing.T) {
	signed, expiresAt, err := testIssuer().Issue("user-1", "staff", "clinic-1", []Role{RoleFrontDesk})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("Expected a future expiry, got %v", expiresAt)
	}

	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(signed, &claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("Expected token to parse, got %v", err)
	}
	if !token.Valid {
		t.Fatal("Expected a valid token")
	}

	if claims.Subject != "user-1" {
		t.Errorf("Expected subject user-1, got %s", claims.Subject)
	}
	if claims.UserType != "staff" {
		t.Errorf("Expected user type staff, got %s", claims.UserType)
	}
	if claims.ClinicID != "clinic-1" {
		t.Errorf("Expected clinic clinic-1, got %s", claims.ClinicID)
	}
	if claims.SessionID == "" {
		t.Error("Expected a session id")
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != string(RoleFrontDesk) {
		t.Errorf("Expected roles [front_desk], got %v", claims.Roles)
	}
}

// TestIssueDerivesPermissions tests that permissions come from the role map
func TestIssueDerivesPermissions(t *testing.T) {
	signed, _, err := testIssuer().Issue("user-2", "staff", "clinic-1", []Role{RoleClinicViewer})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	claims := tokenClaims{}
	if _, err := jwt.ParseWithClaims(signed, &claims, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}); err != nil {
		t.Fatalf("Expected token to parse, got %v", err)
	}

	if len(claims.Permissions) != len(RolePermissions[RoleClinicViewer]) {
		t.Fatalf("Expected %d permissions, got %d", len(RolePermissions[RoleClinicViewer]), len(claims.Permissions))
	}
	granted := make(map[string]bool)
	for _, p := range claims.Permissions {
		granted[p] = true
	}
	for _, perm := range RolePermissions[RoleClinicViewer] {
		if !granted[string(perm)] {
			t.Errorf("Expected permission %s to be granted", perm)
		}
	}
}
