package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fishing-api/internal/observability"
)

// iatLeeway bounds how far in the future an issued-at claim may sit before
// the token is rejected. Covers ordinary clock skew between issuer and this
// process, nothing more.
const iatLeeway = 60 * time.Second

var allowedAlgorithms = map[string]bool{
	jwt.SigningMethodHS256.Alg(): true,
}

// Verifier validates bearer credentials. With a shared secret configured it
// performs full HS256 signature verification; without one it falls back to
// claim-only checks, which is a weaker mode and is logged as such at
// construction. The algorithm allow-list is enforced in both modes, and
// "none" is never accepted.
type Verifier struct {
	secret    []byte
	issuer    string
	blacklist *Blacklist
	degraded  bool
	now       func() time.Time
	parser    *jwt.Parser
}

func NewVerifier(secret, issuer string, blacklist *Blacklist, logger *observability.Logger) *Verifier {
	v := &Verifier{
		issuer:    issuer,
		blacklist: blacklist,
		now:       time.Now,
	}
	if secret == "" {
		v.degraded = true
		logger.Warn("token_verification_degraded", map[string]any{
			"reason": "no signing secret configured, signature checks disabled",
		})
	} else {
		v.secret = []byte(secret)
	}

	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	)
	return v
}

// Degraded reports whether the verifier is running without signature checks.
func (v *Verifier) Degraded() bool {
	return v.degraded
}

// Verify runs the full check sequence against a raw bearer token and returns
// the Identity asserted by its claims. Any failure is a *VerificationError;
// callers must treat all kinds as the same generic authorization failure
// towards the client.
func (v *Verifier) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Count(raw, ".") != 2 {
		return Identity{}, failVerification(KindMalformedCredential, nil)
	}

	if v.blacklist != nil && v.blacklist.IsRevoked(raw) {
		return Identity{}, failVerification(KindRevoked, nil)
	}

	// The declared algorithm is checked before any cryptographic work so a
	// forged header can never steer verification onto a weaker method.
	alg, err := declaredAlgorithm(raw)
	if err != nil {
		return Identity{}, failVerification(KindMalformedCredential, err)
	}
	if !allowedAlgorithms[alg] {
		return Identity{}, failVerification(KindUnsupportedAlgorithm, errors.New("algorithm "+alg+" not allowed"))
	}

	claims := jwt.MapClaims{}
	if v.degraded {
		if err := v.parseUnverified(raw, claims); err != nil {
			return Identity{}, err
		}
	} else {
		if err := v.parseVerified(raw, claims); err != nil {
			return Identity{}, err
		}
	}

	if err := v.validateIssuedAt(claims); err != nil {
		return Identity{}, err
	}
	if err := v.validateIssuer(claims); err != nil {
		return Identity{}, err
	}

	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return Identity{}, failVerification(KindMissingSubject, err)
	}

	email, _ := claims["email"].(string)

	return Identity{
		Subject: subject,
		Email:   email,
		Token:   raw,
	}, nil
}

func (v *Verifier) parseVerified(raw string, claims jwt.MapClaims) error {
	token, err := v.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return classifyParseError(err)
	}
	if !token.Valid {
		return failVerification(KindInvalidSignature, nil)
	}
	return nil
}

func (v *Verifier) parseUnverified(raw string, claims jwt.MapClaims) error {
	if _, _, err := v.parser.ParseUnverified(raw, claims); err != nil {
		return failVerification(KindMalformedCredential, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return failVerification(KindExpired, err)
	}
	if !exp.Time.After(v.now()) {
		return failVerification(KindExpired, nil)
	}
	return nil
}

func (v *Verifier) validateIssuedAt(claims jwt.MapClaims) error {
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return failVerification(KindInvalidIssuedAt, err)
	}
	if iat == nil {
		return nil
	}
	if iat.Time.After(v.now().Add(iatLeeway)) {
		return failVerification(KindInvalidIssuedAt, nil)
	}
	return nil
}

func (v *Verifier) validateIssuer(claims jwt.MapClaims) error {
	issuer, err := claims.GetIssuer()
	if err != nil || issuer == "" {
		return failVerification(KindInvalidIssuer, err)
	}
	if issuer != v.issuer && !strings.Contains(issuer, v.issuer) {
		return failVerification(KindInvalidIssuer, nil)
	}
	return nil
}

func classifyParseError(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return failVerification(KindInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return failVerification(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return failVerification(KindUnsupportedAlgorithm, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return failVerification(KindMalformedCredential, err)
	default:
		// Unexpected library failure: fail closed as a verification failure.
		return failVerification(KindInvalidSignature, err)
	}
}

func declaredAlgorithm(raw string) (string, error) {
	headerSegment := raw[:strings.IndexByte(raw, '.')]
	decoded, err := base64.RawURLEncoding.DecodeString(headerSegment)
	if err != nil {
		return "", err
	}

	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(decoded, &header); err != nil {
		return "", err
	}
	return header.Alg, nil
}
