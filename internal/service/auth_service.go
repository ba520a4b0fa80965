package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
	"github.com/sandeepkv93/elearning-auth-service/internal/observability"
	"github.com/sandeepkv93/elearning-auth-service/internal/repository"
	"github.com/sandeepkv93/elearning-auth-service/internal/security"
)

// TokenPair is returned by login, signup and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	ExpiresAt    time.Time
	SessionID    uint
}

// Identity is the caller resolved from an access token. It is passed
// explicitly to every operation that acts on behalf of a user.
type Identity struct {
	UserID    uint
	Email     string
	SessionID uint
}

type AuthSettings struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// AuthService holds no mutable state of its own; all durable state lives in
// the store, the reset token store and the credential store.
type AuthService struct {
	store       repository.Store
	credentials CredentialVerifier
	hasher      *security.PasswordHasher
	jwtMgr      *security.JWTManager
	resets      ResetTokenStore
	notifier    PasswordResetNotifier
	logger      *slog.Logger
	tracer      trace.Tracer
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

func NewAuthService(
	store repository.Store,
	credentials CredentialVerifier,
	hasher *security.PasswordHasher,
	jwtMgr *security.JWTManager,
	resets ResetTokenStore,
	notifier PasswordResetNotifier,
	logger *slog.Logger,
	settings AuthSettings,
) *AuthService {
	now := settings.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:       store,
		credentials: credentials,
		hasher:      hasher,
		jwtMgr:      jwtMgr,
		resets:      resets,
		notifier:    notifier,
		logger:      logger,
		tracer:      otel.Tracer("elearning-auth-service/auth"),
		accessTTL:   settings.AccessTTL,
		refreshTTL:  settings.RefreshTTL,
		now:         now,
	}
}

// Login verifies credentials and opens a brand-new session. Sessions are never
// reused, so one user may hold several at once.
func (s *AuthService) Login(ctx context.Context, email, password string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer func() { err = s.finish(ctx, span, "login", err) }()

	user, err := s.credentials.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("verify credentials", err)
	}

	now := s.now()
	var session domain.Session
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := tx.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		return s.openSession(ctx, tx, user.ID, now, &session)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError("open session", err)
	}

	pair, err = s.issuePair(user.Email, session.ID)
	if err != nil {
		return nil, err
	}
	observability.Audit(ctx, s.logger, "auth.login", "user_id", user.ID, "session_id", session.ID)
	return pair, nil
}

// Signup registers a user and then behaves like the tail of Login.
func (s *AuthService) Signup(ctx context.Context, email, password, fullName string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.signup")
	defer func() { err = s.finish(ctx, span, "signup", err) }()

	email = domain.NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || !strings.Contains(email, "@") || fullName == "" {
		return nil, ErrInvalidInput
	}
	if err := security.ValidatePassword(password); err != nil {
		return nil, ErrInvalidPassword
	}

	_, err = s.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailAlreadyExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, internalError("check email", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalError("hash password", err)
	}

	now := s.now()
	user := domain.User{Email: email, FullName: fullName, PasswordHash: hash, Status: domain.UserStatusActive}
	var session domain.Session
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := tx.Users().Create(ctx, &user); err != nil {
			return err
		}
		return s.openSession(ctx, tx, user.ID, now, &session)
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, internalError("create user", err)
	}

	pair, err = s.issuePair(user.Email, session.ID)
	if err != nil {
		return nil, err
	}
	observability.Audit(ctx, s.logger, "auth.signup", "user_id", user.ID, "session_id", session.ID)
	return pair, nil
}

// Refresh mints a new pair bound to the same session. The session is not
// rotated: an older refresh token for a live session stays usable until its
// own expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	ctx, span := s.tracer.Start(ctx, "auth.refresh")
	defer func() { err = s.finish(ctx, span, "refresh", err) }()

	claims, err := s.jwtMgr.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrTokenExpiredOrInvalid
	}
	session, err := s.store.Sessions().FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrTokenExpiredOrInvalid
		}
		return nil, internalError("find session", err)
	}
	if !session.Active {
		return nil, ErrTokenExpiredOrInvalid
	}
	user, err := s.store.Users().FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrTokenExpiredOrInvalid
		}
		return nil, internalError("find session owner", err)
	}
	return s.issuePair(user.Email, session.ID)
}

// Logout deletes the session referenced by accessToken. A token without a
// usable session id makes it a no-op, so calling it twice is fine.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.logout")
	defer func() { err = s.finish(ctx, span, "logout", err) }()

	sessionID, err := s.jwtMgr.SessionIDForRevocation(accessToken)
	if err != nil {
		s.logger.DebugContext(ctx, "logout without usable session id", "reason", err.Error())
		return nil
	}
	deleted, err := s.store.Sessions().DeleteByID(ctx, sessionID)
	if err != nil {
		return internalError("delete session", err)
	}
	span.SetAttributes(attribute.Bool("auth.session_deleted", deleted))
	if deleted {
		observability.Audit(ctx, s.logger, "auth.logout", "session_id", sessionID)
	}
	return nil
}

// ForgotPassword stores a one-time reset token for 15 minutes and sends it to
// the account owner. Both steps are mandatory: a storage failure is returned
// as ErrInternal, a delivery failure as ErrNotificationFailed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.forgot_password")
	defer func() { err = s.finish(ctx, span, "forgot_password", err) }()

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return internalError("find user", err)
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return internalError("generate reset token", err)
	}
	key := resetKey(token)
	if err := s.resets.Put(ctx, key, user.Email, PasswordResetTTL); err != nil {
		return internalError("store reset token", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		// The owner never saw this token; do not leave it redeemable.
		if delErr := s.resets.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "drop undelivered reset token", "user_id", user.ID, "error", delErr)
		}
		return notificationError(err)
	}
	observability.Audit(ctx, s.logger, "auth.password_reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword redeems a reset token. The token is taken out of the store
// atomically before anything else, so of two concurrent redemptions only one
// proceeds. The password update and the deactivation of every session of the
// owner commit together; if that fails, or the new password is rejected, the
// token is put back with the TTL it had left.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.reset_password")
	defer func() { err = s.finish(ctx, span, "reset_password", err) }()

	if strings.TrimSpace(token) == "" {
		return ErrInvalidOrExpiredToken
	}
	key := resetKey(token)
	email, remaining, ok, err := s.resets.Take(ctx, key)
	if err != nil {
		return internalError("take reset token", err)
	}
	if !ok {
		return ErrInvalidOrExpiredToken
	}
	restore := func() {
		if remaining <= 0 {
			return
		}
		if err := s.resets.Put(ctx, key, email, remaining); err != nil {
			s.logger.WarnContext(ctx, "restore reset token", "error", err)
		}
	}

	if err := security.ValidatePassword(newPassword); err != nil {
		restore()
		return ErrInvalidPassword
	}
	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		restore()
		return internalError("find user", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		restore()
		return internalError("hash password", err)
	}

	var deactivated int64
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		n, err := tx.Sessions().DeactivateAllForOwner(ctx, user.ID)
		deactivated = n
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		restore()
		return internalError("apply password reset", err)
	}
	observability.Audit(ctx, s.logger, "auth.password_reset", "user_id", user.ID, "sessions_deactivated", deactivated)
	return nil
}

// ChangePassword replaces the password of the calling user after checking
// the current one. Every other session of the user is deactivated; the
// calling session keeps working.
func (s *AuthService) ChangePassword(ctx context.Context, id Identity, oldPassword, newPassword string) (err error) {
	ctx, span := s.tracer.Start(ctx, "auth.change_password")
	defer func() { err = s.finish(ctx, span, "change_password", err) }()

	if err := security.ValidatePassword(newPassword); err != nil {
		return ErrInvalidPassword
	}
	user, err := s.store.Users().FindByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return internalError("find user", err)
	}
	ok, err := s.hasher.Matches(user.PasswordHash, oldPassword)
	if err != nil {
		return internalError("compare password", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internalError("hash password", err)
	}
	err = s.store.WithinTx(ctx, func(tx repository.Repos) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		_, err := tx.Sessions().DeactivateOthersForOwner(ctx, user.ID, id.SessionID)
		return err
	})
	if err != nil {
		return internalError("apply password change", err)
	}
	observability.Audit(ctx, s.logger, "auth.password_changed", "user_id", user.ID, "session_id", id.SessionID)
	return nil
}

// Authenticate resolves an access token into the caller's Identity. The
// referenced session must still exist and be active.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.jwtMgr.VerifyAccess(accessToken)
	if err != nil {
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	session, err := s.store.Sessions().FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, internalError("find session", err)
	}
	if !session.Active {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: session.UserID, Email: claims.Subject, SessionID: session.ID}, nil
}

func (s *AuthService) openSession(ctx context.Context, tx repository.Repos, userID uint, now time.Time, out *domain.Session) error {
	*out = domain.Session{UserID: userID, ExpiresAt: now.Add(s.refreshTTL).UTC()}
	return tx.Sessions().Create(ctx, out)
}

// issuePair signs both tokens at one instant; ExpiresAt equals the access
// token's exp claim.
func (s *AuthService) issuePair(email string, sessionID uint) (*TokenPair, error) {
	now := s.now()
	access, err := s.jwtMgr.IssueAt(security.AccessToken, email, sessionID, now, s.accessTTL)
	if err != nil {
		return nil, internalError("sign access token", err)
	}
	refresh, err := s.jwtMgr.IssueAt(security.RefreshToken, email, sessionID, now, s.refreshTTL)
	if err != nil {
		return nil, internalError("sign refresh token", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
		ExpiresAt:    now.Add(s.accessTTL).Truncate(time.Second),
		SessionID:    sessionID,
	}, nil
}

func (s *AuthService) finish(ctx context.Context, span trace.Span, operation string, err error) error {
	defer span.End()
	status := "success"
	if err != nil {
		kind := KindOf(err)
		status = string(kind)
		span.SetAttributes(attribute.String("auth.error_kind", status))
		if kind == KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, operation+" failed")
			s.logger.ErrorContext(ctx, "auth operation failed", "operation", operation, "error", err)
		}
	}
	observability.RecordAuthOperation(ctx, operation, status)
	return err
}
