package token

import (
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	raw, err := s.Issue(42, "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := s.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewSigner("secret-a", time.Hour)
	verifier := NewSigner("secret-b", time.Hour)

	raw, err := issuer.Issue(42, "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return issued }
	raw, err := s.Issue(42, "alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := s.Verify(raw); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := s.Verify(raw); err != ErrInvalidToken {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}
