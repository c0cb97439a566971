package auth

import (
	"testing"

	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
)

func testTokenManager() *TokenManager {
	return NewTokenManager(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
	})
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	tm := testTokenManager()
	user := &domain.User{ID: "user-1", Role: domain.UserRoleAgent}

	token, err := tm.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := tm.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("uid = %s, want user-1", claims.UserID)
	}
	if claims.Role != domain.UserRoleAgent {
		t.Errorf("role = %s, want agent", claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := testTokenManager().Issue(&domain.User{ID: "user-1", Role: domain.UserRoleCustomer})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other := NewTokenManager(config.AuthConfig{JWTSecret: "different-secret", AccessTokenTTLMinutes: 15})
	if _, err := other.Parse(token); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := testTokenManager().Parse("not.a.token"); err == nil {
		t.Fatal("malformed token must not validate")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hashed, err := HashPassword("s3cret-value", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hashed, "s3cret-value") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hashed, "wrong-value") {
		t.Error("wrong password accepted")
	}
}
