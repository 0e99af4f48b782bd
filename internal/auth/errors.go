package auth

import (
	"errors"
	"fmt"
)

// FailureKind names why a credential was rejected. Kinds are logged for
// operators; clients only ever see a generic 401 body.
type FailureKind string

const (
	KindMalformedCredential  FailureKind = "malformed_credential"
	KindRevoked              FailureKind = "revoked"
	KindUnsupportedAlgorithm FailureKind = "unsupported_algorithm"
	KindInvalidSignature     FailureKind = "invalid_signature"
	KindExpired              FailureKind = "expired"
	KindInvalidIssuedAt      FailureKind = "invalid_issued_at"
	KindInvalidIssuer        FailureKind = "invalid_issuer"
	KindMissingSubject       FailureKind = "missing_subject"
)

type VerificationError struct {
	Kind  FailureKind
	cause error
}

func (e *VerificationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("token verification failed (%s): %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("token verification failed (%s)", e.Kind)
}

func (e *VerificationError) Unwrap() error {
	return e.cause
}

func failVerification(kind FailureKind, cause error) *VerificationError {
	return &VerificationError{Kind: kind, cause: cause}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSigningUnavailable = errors.New("token signing secret is not configured")
)
