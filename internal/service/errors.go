package service

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

type Kind string

const (
	KindAuthentication Kind = "authentication_failure"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindExpired        Kind = "expired"
	KindValidation     Kind = "validation"
	KindInternal       Kind = "internal"
)

var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUnauthenticated       = errors.New("access token invalid or session ended")
	ErrUserNotFound          = errors.New("user not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrEmailAlreadyExists    = errors.New("email already registered")
	ErrTokenExpiredOrInvalid = errors.New("refresh token expired or invalid")
	ErrInvalidOrExpiredToken = errors.New("reset token invalid or expired")
	ErrInvalidPassword       = errors.New("password does not satisfy policy")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotificationFailed    = errors.New("reset link could not be delivered")
	ErrInternal              = errors.New("internal error")
)

var kindBySentinel = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidCredentials, KindAuthentication},
	{ErrUnauthenticated, KindAuthentication},
	{ErrUserNotFound, KindNotFound},
	{ErrSessionNotFound, KindNotFound},
	{ErrEmailAlreadyExists, KindConflict},
	{ErrTokenExpiredOrInvalid, KindExpired},
	{ErrInvalidOrExpiredToken, KindExpired},
	{ErrInvalidPassword, KindValidation},
	{ErrInvalidInput, KindValidation},
	{ErrNotificationFailed, KindInternal},
	{ErrInternal, KindInternal},
}

// KindOf classifies err for callers that map failures to a transport status.
// Unknown errors are internal; nil has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kindBySentinel {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

func internalError(operation string, err error) error {
	return oops.
		Code("AUTH_INTERNAL").
		In("auth").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %s: %w", ErrInternal, operation, err))
}

func notificationError(err error) error {
	return oops.
		Code("AUTH_NOTIFICATION_FAILED").
		In("auth").
		With("operation", "send password reset").
		Wrap(fmt.Errorf("%w: %w", ErrNotificationFailed, err))
}
