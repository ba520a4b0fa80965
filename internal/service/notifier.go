package service

import "context"

// PasswordResetNotifier delivers the reset link to the account owner.
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
