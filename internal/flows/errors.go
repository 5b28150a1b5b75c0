package flows

import "errors"

// Sentinel failures. Every flow raises one of these (or a LoginError, or the
// codec's and cipher's own sentinels) and lets it propagate to the transport
// boundary unhandled.
var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrEmailExists      = errors.New("email already registered")
	ErrLoginRejected    = errors.New("login rejected")
	ErrTFAEnabled       = errors.New("two-factor auth already enabled")
	ErrTFANotEnabled    = errors.New("two-factor auth not enabled")
	ErrTFACodeInvalid   = errors.New("invalid 2FA code")
	ErrPasswordRequired = errors.New("current password required")
)

// User-facing rejection reasons carried by LoginError.
const (
	ReasonBadCredentials = "Email or password is invalid"
	ReasonLocked         = "Account is locked, reset your password to unlock it"
	ReasonDeleted        = "Account has been deactivated"
	ReasonNoPassword     = "Password login is not set up for this account, use social login"
	ReasonUseEmailLogin  = "Two-factor auth is enabled, use email login"
	ReasonSignUpFirst    = "No account found, sign up first"
	ReasonNoEmail        = "Social provider did not share an email address"
	ReasonIDConflict     = "Multiple IDs for the same provider"
)

// LoginError is a domain login rejection with a user-facing reason. It
// unwraps to ErrLoginRejected so callers can match the class without
// comparing strings.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string { return e.Reason }

func (e *LoginError) Unwrap() error { return ErrLoginRejected }

func loginErr(reason string) error { return &LoginError{Reason: reason} }
