package supabase

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrorKind classifies why a token was rejected.
type ErrorKind string

const (
	KindMalformedToken   ErrorKind = "malformed_token"
	KindInvalidSignature ErrorKind = "invalid_signature"
	KindIssuerMismatch   ErrorKind = "issuer_mismatch"
	KindAudienceMismatch ErrorKind = "audience_mismatch"
	KindExpired          ErrorKind = "expired"
	KindNotYetValid      ErrorKind = "not_yet_valid"
	KindMissingSubject   ErrorKind = "missing_subject"
)

var (
	// ErrConfigurationMissing is returned when the trust configuration cannot be built.
	ErrConfigurationMissing = errors.New("supabase trust configuration missing")

	// ErrSecretWhitespace is returned for a secret with leading or trailing
	// whitespace. The secret is HMAC key material and is used byte for byte.
	ErrSecretWhitespace = errors.New("supabase jwt secret has leading or trailing whitespace")

	ErrMalformedToken   = &VerificationError{Kind: KindMalformedToken}
	ErrInvalidSignature = &VerificationError{Kind: KindInvalidSignature}
	ErrIssuerMismatch   = &VerificationError{Kind: KindIssuerMismatch}
	ErrAudienceMismatch = &VerificationError{Kind: KindAudienceMismatch}
	ErrExpired          = &VerificationError{Kind: KindExpired}
	ErrNotYetValid      = &VerificationError{Kind: KindNotYetValid}
	ErrMissingSubject   = &VerificationError{Kind: KindMissingSubject}
)

// VerificationError is returned by Verify for every rejected token.
// It never carries the raw token.
type VerificationError struct {
	Kind ErrorKind
	Err  error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token verification failed: %s (%v)", e.Kind, e.Err)
	}
	return fmt.Sprintf("token verification failed: %s", e.Kind)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is matches any VerificationError of the same kind.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf reports the verification kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}

func newVerificationError(kind ErrorKind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

// classify maps parser and validator errors from golang-jwt onto our kinds.
func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newVerificationError(KindMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newVerificationError(KindInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return newVerificationError(KindIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return newVerificationError(KindAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return newVerificationError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return newVerificationError(KindNotYetValid, err)
	default:
		// Missing exp and undecodable claim values land here.
		return newVerificationError(KindMalformedToken, err)
	}
}
