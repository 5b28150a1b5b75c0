package authcore

import (
	"github.com/talentyard/authcore/internal/flows"
	"github.com/talentyard/authcore/secretbox"
	"github.com/talentyard/authcore/token"
)

// Sentinel failures raised by engine operations. Match with errors.Is; pull
// the user-facing reason out of a LoginError with errors.As.
var (
	ErrNotFound         = flows.ErrNotFound
	ErrUnauthorized     = flows.ErrUnauthorized
	ErrForbidden        = flows.ErrForbidden
	ErrEmailExists      = flows.ErrEmailExists
	ErrLoginRejected    = flows.ErrLoginRejected
	ErrTFAEnabled       = flows.ErrTFAEnabled
	ErrTFANotEnabled    = flows.ErrTFANotEnabled
	ErrTFACodeInvalid   = flows.ErrTFACodeInvalid
	ErrPasswordRequired = flows.ErrPasswordRequired

	// ErrInvalidToken covers every token verification failure.
	ErrInvalidToken = token.ErrInvalid

	// ErrDecryptionFailed is deliberately generic: it never reveals whether
	// the key was wrong or the data corrupt.
	ErrDecryptionFailed = secretbox.ErrDecryptionFailed
)

// LoginError is a login rejection carrying a user-facing reason. It unwraps
// to ErrLoginRejected.
type LoginError = flows.LoginError
