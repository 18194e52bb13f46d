package auth

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeSessionNotFound      = "SESSION_NOT_FOUND"
	TextCodeTokenInvalid         = "TOKEN_INVALID"
	TextCodeInvalidCreds         = "INVALID_CREDENTIALS"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeUserRegistered       = "USER_ALREADY_REGISTERED"
	TextCodeRequestSubmitted     = "REQUEST_ALREADY_SUBMITTED"
	TextCodeRequestNotFound      = "REQUEST_NOT_FOUND"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeInvalidRole          = "INVALID_ROLE"
	TextCodeInvalidPayload       = "INVALID_PAYLOAD"
	TextCodeEmptyPassword        = "EMPTY_PASSWORD"
	TextCodeUnknownOperation     = "UNKNOWN_OPERATION"
	TextCodeMissingSigningSecret = "MISSING_SIGNING_SECRET"
)

// ErrMissingSession is returned when the request carries no session cookie
var ErrMissingSession = errors.New("token not provided", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken covers malformed, mis-signed and expired tokens alike so
// callers cannot tell them apart.
var ErrInvalidToken = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is returned for unknown matricula or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated caller lacks the role
var ErrForbidden = errors.New("not authorized", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrUnknownOperation is returned when an operation has no access policy
var ErrUnknownOperation = errors.New("operation has no access policy", errors.CategoryAuthz).
	WithTextCode(TextCodeUnknownOperation).
	WithCode(errors.CodeForbidden)

// ErrUserAlreadyRegistered is returned when a user holds the matricula.
// Registration conflicts answer 400 to match the public register contract.
var ErrUserAlreadyRegistered = errors.New("user already registered", errors.CategoryConflict).
	WithTextCode(TextCodeUserRegistered).
	WithCode(errors.CodeBadRequest)

// ErrRequestAlreadySubmitted is returned when a pending request holds the matricula
var ErrRequestAlreadySubmitted = errors.New("registration request already submitted", errors.CategoryConflict).
	WithTextCode(TextCodeRequestSubmitted).
	WithCode(errors.CodeBadRequest)

// ErrRequestNotFound is returned when no pending request exists
var ErrRequestNotFound = errors.New("registration request not found", errors.CategoryNotFound).
	WithTextCode(TextCodeRequestNotFound).
	WithCode(errors.CodeNotFound)

// ErrUserNotFound is returned when the user record does not exist
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidRole is returned for roles outside ADMIN, SUPERVISOR, AGENT
var ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrMissingSigningKey is returned when the token secret is not configured
var ErrMissingSigningKey = errors.New("token signing secret is required", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSigningSecret).
	WithCode(errors.CodeInternal)

// NewValidationError wraps a payload validation failure
func NewValidationError(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryValidation, message).
		WithTextCode(TextCodeInvalidPayload).
		WithCode(errors.CodeBadRequest)
}

// IsUniqueViolation reports whether a store error is a unique constraint clash.
// Wrapped errors are inspected down the chain.
func IsUniqueViolation(err error) bool {
	for err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint") ||
			strings.Contains(msg, "duplicate key value") {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
