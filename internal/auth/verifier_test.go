package auth

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-signing-secret"
	testIssuer = "https://auth.fishing.test"
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

func newTestVerifier(t *testing.T, secret string) (*Verifier, *Blacklist) {
	t.Helper()
	blacklist := NewBlacklist()
	v := NewVerifier(secret, testIssuer, blacklist, testLogger())
	v.now = func() time.Time { return testNow }
	return v, blacklist
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return encoded
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   testIssuer,
		"sub":   "player-123",
		"email": "angler@example.com",
		"iat":   testNow.Add(-time.Minute).Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	}
}

func wantKind(t *testing.T, err error, kind FailureKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected verification failure %s, got success", kind)
	}
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *VerificationError, got %T: %v", err, err)
	}
	if verr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, verr.Kind)
	}
}

func TestVerify_Success(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)
	raw := signToken(t, testSecret, validClaims())

	identity, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Subject != "player-123" {
		t.Errorf("subject = %q, want player-123", identity.Subject)
	}
	if identity.Email != "angler@example.com" {
		t.Errorf("email = %q", identity.Email)
	}
	if identity.Token != raw {
		t.Errorf("identity should retain the raw token")
	}
}

func TestVerify_BlankAndMalformed(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	for _, raw := range []string{"", "   ", "not-a-token", "only.one"} {
		_, err := v.Verify(raw)
		wantKind(t, err, KindMalformedCredential)
	}
}

func TestVerify_Expired(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	claims["exp"] = testNow.Add(-time.Second).Unix()
	_, err := v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindExpired)

	// exp exactly now is not "strictly in the future"
	claims["exp"] = testNow.Unix()
	_, err = v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindExpired)
}

func TestVerify_MissingExpiry(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	delete(claims, "exp")
	_, err := v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindExpired)
}

func TestVerify_InvalidIssuer(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	claims["iss"] = "https://attacker.example"
	_, err := v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindInvalidIssuer)

	delete(claims, "iss")
	_, err = v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindInvalidIssuer)
}

func TestVerify_IssuerContainingExpected(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	claims["iss"] = testIssuer + "/v2"
	if _, err := v.Verify(signToken(t, testSecret, claims)); err != nil {
		t.Fatalf("issuer containing the expected value should pass: %v", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	claims["sub"] = "   "
	_, err := v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindMissingSubject)

	delete(claims, "sub")
	_, err = v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindMissingSubject)
}

func TestVerify_WrongSecret(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	_, err := v.Verify(signToken(t, "a-different-secret", validClaims()))
	wantKind(t, err, KindInvalidSignature)
}

func TestVerify_FutureIssuedAt(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	claims := validClaims()
	claims["iat"] = testNow.Add(10 * time.Minute).Unix()
	_, err := v.Verify(signToken(t, testSecret, claims))
	wantKind(t, err, KindInvalidIssuedAt)

	// within the skew tolerance
	claims["iat"] = testNow.Add(30 * time.Second).Unix()
	if _, err := v.Verify(signToken(t, testSecret, claims)); err != nil {
		t.Fatalf("iat within leeway should pass: %v", err)
	}
}

func TestVerify_NoneAlgorithmAlwaysRejected(t *testing.T) {
	raw := noneAlgorithmToken(t)

	full, _ := newTestVerifier(t, testSecret)
	_, err := full.Verify(raw)
	wantKind(t, err, KindUnsupportedAlgorithm)

	degraded, _ := newTestVerifier(t, "")
	_, err = degraded.Verify(raw)
	wantKind(t, err, KindUnsupportedAlgorithm)
}

func TestVerify_UnlistedAlgorithmRejected(t *testing.T) {
	v, _ := newTestVerifier(t, testSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS384, validClaims())
	raw, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	_, verr := v.Verify(raw)
	wantKind(t, verr, KindUnsupportedAlgorithm)
}

func TestVerify_Revoked(t *testing.T) {
	v, blacklist := newTestVerifier(t, testSecret)
	raw := signToken(t, testSecret, validClaims())

	if _, err := v.Verify(raw); err != nil {
		t.Fatalf("token should verify before revocation: %v", err)
	}

	blacklist.Record(raw)

	_, err := v.Verify(raw)
	wantKind(t, err, KindRevoked)

	// revocation wins even over other defects of the same token
	expired := signToken(t, testSecret, jwt.MapClaims{"exp": testNow.Add(-time.Hour).Unix()})
	blacklist.Record(expired)
	_, err = v.Verify(expired)
	wantKind(t, err, KindRevoked)
}

func TestVerify_DegradedMode(t *testing.T) {
	v, _ := newTestVerifier(t, "")
	if !v.Degraded() {
		t.Fatal("verifier without a secret should report degraded")
	}

	// any HS256-declared signature is accepted, claims still checked
	raw := signToken(t, "whatever-secret", validClaims())
	identity, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("degraded verification failed: %v", err)
	}
	if identity.Subject != "player-123" {
		t.Errorf("subject = %q", identity.Subject)
	}

	claims := validClaims()
	claims["exp"] = testNow.Add(-time.Second).Unix()
	_, err = v.Verify(signToken(t, "whatever-secret", claims))
	wantKind(t, err, KindExpired)

	claims = validClaims()
	claims["iss"] = "https://attacker.example"
	_, err = v.Verify(signToken(t, "whatever-secret", claims))
	wantKind(t, err, KindInvalidIssuer)
}

func noneAlgorithmToken(t *testing.T) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"iss":"` + testIssuer + `","sub":"player-123","exp":` +
		"1893456000" + `}`))
	return header + "." + payload + "."
}
