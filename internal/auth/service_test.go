package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAccessToken_VerifiesRoundTrip(t *testing.T) {
	service := NewService(nil, testSecret, testIssuer)
	service.now = func() time.Time { return testNow }

	user := User{ID: "player-123", Email: "angler@example.com"}
	tokens, err := service.issueAccessToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if tokens.TokenType != "Bearer" {
		t.Errorf("token type = %q", tokens.TokenType)
	}
	if tokens.ExpiresIn != int64(defaultAccessTTL.Seconds()) {
		t.Errorf("expires_in = %d", tokens.ExpiresIn)
	}

	v, _ := newTestVerifier(t, testSecret)
	identity, err := v.Verify(tokens.AccessToken)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if identity.Subject != user.ID {
		t.Errorf("subject = %q, want %q", identity.Subject, user.ID)
	}
	if identity.Email != user.Email {
		t.Errorf("email = %q", identity.Email)
	}
}

func TestUsernameFor(t *testing.T) {
	cases := []struct {
		email    string
		username string
		want     string
	}{
		{"angler@example.com", "", "angler"},
		{"angler@example.com", "Captain Ahab", "Captain Ahab"},
		{"angler@example.com", "   ", "angler"},
		{"no-at-sign", "", "no-at-sign"},
		{"@leading-at", "", "@leading-at"},
		{"", "", ""},
	}

	for _, tc := range cases {
		if got := usernameFor(tc.email, tc.username); got != tc.want {
			t.Errorf("usernameFor(%q, %q) = %q, want %q", tc.email, tc.username, got, tc.want)
		}
	}
}

func TestIssueAccessToken_RefusesWithoutSecret(t *testing.T) {
	service := NewService(nil, "", testIssuer)

	_, err := service.issueAccessToken(User{ID: "player-123"})
	if !errors.Is(err, ErrSigningUnavailable) {
		t.Fatalf("expected ErrSigningUnavailable, got %v", err)
	}
}
