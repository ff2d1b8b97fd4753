package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetcare/identity-api/internal/core/domain"
	"github.com/vetcare/identity-api/internal/core/ports"
)

// ResetPasswordSubject is the subject line of the password reset email.
const ResetPasswordSubject = "Reset Password"

// Option customizes an AuthService.
type Option func(*AuthService)

// WithClock replaces time.Now. Tests use it to pin expiry boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenLocker serializes refresh and logout on the same token across
// replicas.
func WithTokenLocker(l ports.TokenLocker) Option {
	return func(s *AuthService) { s.locker = l }
}

// WithSessionLifetimes overrides the refresh and reset session lifetimes.
// Non-positive values keep the defaults.
func WithSessionLifetimes(refresh, reset time.Duration) Option {
	return func(s *AuthService) {
		if refresh > 0 {
			s.refreshTTL = refresh
		}
		if reset > 0 {
			s.resetTTL = reset
		}
	}
}

// WithSlidingRefresh makes every rotation push the refresh session expiry
// forward by the refresh lifetime.
func WithSlidingRefresh(enabled bool) Option {
	return func(s *AuthService) { s.slidingRefresh = enabled }
}

// WithResetTokenConsumption controls whether a successful password reset
// deletes the reset session it used.
func WithResetTokenConsumption(enabled bool) Option {
	return func(s *AuthService) { s.consumeResetTokens = enabled }
}

// AuthService implements the session lifecycle: register, login, token
// refresh, logout and the password reset flow.
type AuthService struct {
	store    ports.CredentialStore
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	notifier ports.Notifier
	locker   ports.TokenLocker
	log      zerolog.Logger

	now                func() time.Time
	refreshTTL         time.Duration
	resetTTL           time.Duration
	slidingRefresh     bool
	consumeResetTokens bool
}

func NewAuthService(
	store ports.CredentialStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	notifier ports.Notifier,
	log zerolog.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		store:              store,
		hasher:             hasher,
		tokens:             tokens,
		notifier:           notifier,
		log:                log,
		now:                time.Now,
		refreshTTL:         domain.RefreshSessionLifetime,
		resetTTL:           domain.ResetSessionLifetime,
		consumeResetTokens: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active account. The role defaults to doctor.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = domain.RoleDoctor
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Failure("Hash.Failure", err)
	}
	user := domain.NewUser(in.FirstName, in.LastName, email, hash, role, s.now())

	if err := ctx.Err(); err != nil {
		return nil, domain.Failure("Request.Cancelled", err)
	}
	if err := s.store.CreateUser(context.WithoutCancel(ctx), user); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, domain.ErrUserExists
		}
		return nil, s.storeFailure(err, "create user")
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// Login verifies the password and opens a refresh session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.AuthTokens, error) {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	// Inactive accounts are rejected only after verification so the
	// response does not reveal account state.
	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return nil, domain.ErrInvalidCredentials
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, domain.Failure("Token.Failure", err)
	}
	refreshToken, err := s.tokens.IssueOpaqueToken()
	if err != nil {
		return nil, domain.Failure("Token.Failure", err)
	}

	now := s.now()
	session := domain.NewSession(domain.TokenKindRefresh, refreshToken, now, s.refreshTTL)
	user.AddSession(session)

	changes := &domain.ChangeSet{}
	changes.CreateSession(session)
	if err := s.commit(ctx, changes, nil); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")
	return s.authTokens(user, session, accessToken, now), nil
}

// RefreshToken rotates the refresh session's token in place and issues a
// new access token. The old token stops resolving after the commit.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*ports.AuthTokens, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidCredentials
	}
	release, err := s.lock(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	defer release()

	session, user, err := s.findSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if session.Kind != domain.TokenKindRefresh {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now()
	if session.IsExpired(now) {
		return nil, domain.ErrExpiredRefreshToken
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, domain.Failure("Token.Failure", err)
	}
	newToken, err := s.tokens.IssueOpaqueToken()
	if err != nil {
		return nil, domain.Failure("Token.Failure", err)
	}

	session.Rotate(newToken)
	if s.slidingRefresh {
		session.Extend(now, s.refreshTTL)
	}

	changes := &domain.ChangeSet{}
	changes.UpdateSession(session)
	if err := s.commit(ctx, changes, domain.ErrInvalidCredentials); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("refresh token rotated")
	return s.authTokens(user, session, accessToken, now), nil
}

// Logout deletes the session holding refreshToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domain.ErrInvalidCredentials
	}
	release, err := s.lock(ctx, refreshToken)
	if err != nil {
		return err
	}
	defer release()

	session, user, err := s.findSession(ctx, refreshToken)
	if err != nil {
		return err
	}
	user.RemoveSession(session.ID)

	changes := &domain.ChangeSet{}
	changes.DeleteSession(session)
	if err := s.commit(ctx, changes, domain.ErrInvalidCredentials); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged out")
	return nil
}

// ForgetPassword opens a reset session and mails a link to clientURI
// carrying the reset token and email. An unknown email is reported before
// clientURI is checked. A failed delivery is logged and does not undo the
// session.
func (s *AuthService) ForgetPassword(ctx context.Context, email, clientURI string) error {
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	base, err := url.Parse(clientURI)
	if err != nil || !base.IsAbs() || base.Host == "" {
		return domain.ErrInvalidRedirectURI
	}

	token, err := s.tokens.IssueOpaqueToken()
	if err != nil {
		return domain.Failure("Token.Failure", err)
	}
	session := domain.NewSession(domain.TokenKindResetPassword, token, s.now(), s.resetTTL)
	user.AddSession(session)

	changes := &domain.ChangeSet{}
	changes.CreateSession(session)
	if err := s.commit(ctx, changes, nil); err != nil {
		return err
	}

	link := ResetLink(base, token, user.Email)
	body, err := RenderResetEmail(link)
	if err == nil {
		err = s.notifier.Send(ctx, user.Email, ResetPasswordSubject, body)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Str("session_id", session.ID).Msg("reset email not delivered")
		return nil
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("password reset requested")
	return nil
}

// ResetPassword replaces the password of the user owning a live reset
// session for in.Token.
func (s *AuthService) ResetPassword(ctx context.Context, in ports.ResetPasswordInput) error {
	if in.Password == "" {
		return domain.ErrInvalidInput
	}
	if in.Password != in.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}

	user, err := s.findUser(ctx, in.Email)
	if err != nil {
		return err
	}

	now := s.now()
	session, ok := user.FindActiveResetSession(in.Token, now)
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Failure("Hash.Failure", err)
	}
	user.ChangePasswordHash(hash, now)

	changes := &domain.ChangeSet{}
	changes.UpdateUser(user)
	if s.consumeResetTokens {
		user.RemoveSession(session.ID)
		changes.DeleteSession(session)
	}
	if err := s.commit(ctx, changes, domain.ErrInvalidCredentials); err != nil {
		return err
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("password reset")
	return nil
}

// GetUser loads an account by id. Ids that are not UUIDs cannot exist and
// are reported as not found without a store round trip.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.UserNotFoundByID(id)
	}
	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.UserNotFoundByID(id)
		}
		return nil, s.storeFailure(err, "find user by id")
	}
	return user, nil
}

func (s *AuthService) findUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.UserNotFound(email)
		}
		return nil, s.storeFailure(err, "find user")
	}
	return user, nil
}

func (s *AuthService) findSession(ctx context.Context, token string) (*domain.Session, *domain.User, error) {
	session, user, err := s.store.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, s.storeFailure(err, "find session")
	}
	return session, user, nil
}

// commit applies changes once. Cancellation is honoured up to the call;
// the commit itself runs detached from ctx so it cannot be torn. A version
// conflict or vanished row is reported as onConflict when it is set.
func (s *AuthService) commit(ctx context.Context, changes *domain.ChangeSet, onConflict error) error {
	if err := ctx.Err(); err != nil {
		return domain.Failure("Request.Cancelled", err)
	}
	err := s.store.Commit(context.WithoutCancel(ctx), changes)
	if err == nil {
		return nil
	}
	if onConflict != nil && (errors.Is(err, domain.ErrConcurrentUpdate) || errors.Is(err, domain.ErrRecordNotFound)) {
		s.log.Debug().Err(err).Msg("commit lost a concurrent update")
		return onConflict
	}
	return s.storeFailure(err, "commit")
}

func (s *AuthService) storeFailure(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Failure("Request.Cancelled", err)
	}
	s.log.Error().Err(err).Str("op", op).Msg("credential store failure")
	return domain.Failure("Store.Failure", err)
}

// lock takes the per-token lock when a locker is configured. A lock held by
// someone else means the token is being rotated or revoked right now. If the
// locker itself is unavailable the store's version check still protects the
// session, so the operation proceeds.
func (s *AuthService) lock(ctx context.Context, token string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}
	release, err := s.locker.Acquire(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentUpdate) {
			return nil, domain.ErrInvalidCredentials
		}
		s.log.Warn().Err(err).Msg("token lock unavailable, relying on store versioning")
		return noop, nil
	}
	return release, nil
}

func (s *AuthService) authTokens(user *domain.User, session *domain.Session, accessToken string, now time.Time) *ports.AuthTokens {
	return &ports.AuthTokens{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.UTC().Add(s.tokens.AccessTokenLifetime()),
		RefreshToken:          session.Token,
		RefreshTokenExpiresAt: session.ExpiresAt,
		UserID:                user.ID,
		SessionID:             session.ID,
	}
}
