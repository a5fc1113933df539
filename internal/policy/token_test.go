package policy

import (
	"errors"
	"strings"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !strings.HasPrefix(token, "user-1.") {
		t.Fatalf("token %q does not carry the user id prefix", token)
	}

	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("Verify() user = %q, want user-1", userID)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// Swap the user id without re-signing.
	forged := "user-2." + strings.SplitN(token, ".", 2)[1]
	if _, err := issuer.Verify(forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify(forged) error = %v, want ErrInvalidToken", err)
	}

	for _, bad := range []string{"", "user-1", ".abcdef", "user-1.", "user-1.deadbeef"} {
		if _, err := issuer.Verify(bad); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q) error = %v, want ErrInvalidToken", bad, err)
		}
	}
}

func TestVerifyRejectsTokenFromOtherSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a")
	other := NewTokenIssuer("secret-b")

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
	}
}

func TestUserIDWithDotsSurvivesRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, err := issuer.Issue("alice.smith@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	userID, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "alice.smith@example.com" {
		t.Fatalf("Verify() user = %q", userID)
	}
}

func TestUnconfiguredIssuerRefusesWork(t *testing.T) {
	issuer := NewTokenIssuer("   ")
	if issuer.Configured() {
		t.Fatal("blank secret should leave the issuer unconfigured")
	}
	if _, err := issuer.Issue("user-1"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("Issue() error = %v, want ErrNoSecret", err)
	}
	if _, err := issuer.Verify("user-1.deadbeef"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("Verify() error = %v, want ErrNoSecret", err)
	}
}
