// Package apperr defines the error taxonomy surfaced to review and registry
// callers. Every error carries a stable machine-readable code, a message safe
// to show to users and an HTTP-equivalent status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindNotFound
	KindPasswordRequired
	KindUnauthorized
	KindBusiness
	KindValidation
	KindClientInitialization
	KindReviewTimeout
	KindRateLimited
	KindReviewFailed
	KindMalformedCiphertext
	KindDecryption
)

var kindNames = map[Kind]string{
	KindInternal:             "InternalError",
	KindConfiguration:        "ConfigurationError",
	KindNotFound:             "NotFoundError",
	KindPasswordRequired:     "PasswordRequiredError",
	KindUnauthorized:         "UnauthorizedError",
	KindBusiness:             "BusinessError",
	KindValidation:           "ValidationError",
	KindClientInitialization: "ClientInitializationError",
	KindReviewTimeout:        "ReviewTimeoutError",
	KindRateLimited:          "RateLimitedError",
	KindReviewFailed:         "ReviewFailedError",
	KindMalformedCiphertext:  "MalformedCiphertextError",
	KindDecryption:           "DecryptionError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Status returns the HTTP status used when an error of this kind reaches a client.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindPasswordRequired, KindUnauthorized:
		return http.StatusUnauthorized
	case KindBusiness:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindReviewTimeout:
		return http.StatusGatewayTimeout
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Stable codes.
const (
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeEncryptionKeyMissing = "ENCRYPTION_KEY_MISSING"
	CodeProviderNotFound     = "AI_PROVIDER_NOT_FOUND"
	CodePromptNotFound       = "PROMPT_NOT_FOUND"
	CodeNoActiveProvider     = "REVIEW_NO_ACTIVE_PROVIDER"
	CodeDefaultPromptNotSet  = "REVIEW_DEFAULT_PROMPT_NOT_SET"
	CodePasswordRequired     = "PASSWORD_REQUIRED"
	CodeInvalidPassword      = "INVALID_PASSWORD"
	CodeDeleteActiveProvider = "AI_PROVIDER_DELETE_ACTIVE"
	CodeClientInitFailed     = "REVIEW_AI_CLIENT_INIT_FAILED"
	CodeReviewTimeout        = "REVIEW_TIMEOUT"
	CodeRateLimited          = "REVIEW_RATE_LIMITED"
	CodeReviewFailed         = "REVIEW_FAILED"
	CodeValidation           = "VALIDATION_ERROR"
	CodeMalformedCiphertext  = "MALFORMED_CIPHERTEXT"
	CodeDecryptionFailed     = "DECRYPTION_FAILED"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error is an application error. Message never contains secrets.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for this error.
func (e *Error) Status() int { return e.Kind.Status() }

// New creates an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an error of the given kind that keeps cause in its chain.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries an application error of kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code for err, or CodeInternal for foreign errors.
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

func Configuration(code, message string) *Error {
	return New(KindConfiguration, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func Business(code, message string) *Error {
	return New(KindBusiness, code, message)
}

func PasswordRequired() *Error {
	return New(KindPasswordRequired, CodePasswordRequired, "This AI provider requires a password")
}

func Unauthorized() *Error {
	return New(KindUnauthorized, CodeInvalidPassword, "Invalid password for this AI provider")
}

// ClientInitialization names only the provider kind, never credentials.
func ClientInitialization(providerKind string, cause error) *Error {
	return Wrap(KindClientInitialization, CodeClientInitFailed,
		fmt.Sprintf("Failed to initialize %s client", providerKind), cause)
}

func ReviewTimeout(cause error) *Error {
	return Wrap(KindReviewTimeout, CodeReviewTimeout, "The AI review took too long. Please try again with fewer or smaller files.", cause)
}

func RateLimited(cause error) *Error {
	return Wrap(KindRateLimited, CodeRateLimited, "AI provider rate limit reached. Please try again later.", cause)
}

func ReviewFailed(cause error) *Error {
	return Wrap(KindReviewFailed, CodeReviewFailed, "The AI review failed. Please try again.", cause)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, CodeInternal, message, cause)
}
