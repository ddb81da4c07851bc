package token_test

import (
	"errors"
	"testing"
	"time"

	"pawtrail/internal/adapters/token"
	"pawtrail/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	iss := token.NewIssuer("test-secret", time.Hour)

	u := domain.User{ID: "u-1"}
	ms := []domain.Membership{
		{UserID: "u-1", OrgID: 10, Role: domain.RoleCustomer},
		{UserID: "u-1", OrgID: 20, Role: domain.RoleAdmin},
	}
	signed, exp, err := iss.Issue(u, ms)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := iss.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "u-1" {
		t.Fatalf("subject: %s", claims.Subject)
	}
	if r, ok := claims.Role(20); !ok || r != domain.RoleAdmin {
		t.Fatalf("expected admin in org 20, got %q ok=%v", r, ok)
	}
	if _, ok := claims.Role(30); ok {
		t.Fatalf("expected no membership in org 30")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, _, err := token.NewIssuer("secret-a", time.Hour).Issue(domain.User{ID: "u-1"}, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = token.NewIssuer("secret-b", time.Hour).Verify(signed)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	signed, _, err := token.NewIssuer("secret", -time.Minute).Issue(domain.User{ID: "u-1"}, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := token.NewIssuer("secret", time.Hour).Verify(signed); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired token, got %v", err)
	}
}
