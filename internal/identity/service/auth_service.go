package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kefline/student-hub/internal/audit"
	"github.com/kefline/student-hub/internal/devreset"
	"github.com/kefline/student-hub/internal/identity/repository"
	"github.com/kefline/student-hub/internal/metrics"
	"github.com/kefline/student-hub/internal/security"
	sessiondomain "github.com/kefline/student-hub/internal/session/domain"
	sessionservice "github.com/kefline/student-hub/internal/session/service"
	userdomain "github.com/kefline/student-hub/internal/user/domain"
	userrepo "github.com/kefline/student-hub/internal/user/repository"
)

// Sentinel errors for auth service; handler maps them to HTTP status codes.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidResetToken      = errors.New("invalid or expired reset token")
)

const minPasswordLength = 6

// AuthResult holds the outcome of Register, Login and Refresh.
type AuthResult struct {
	User   *userdomain.User
	Tokens *sessionservice.TokenPair
}

// RegisterInput is the account data accepted at registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      userdomain.Role
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// AuthService implements the account flows over the session manager.
type AuthService struct {
	users       UserRepo
	credentials repository.CredentialStore
	sessions    *sessionservice.Manager
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	dummyHash   string

	audit          audit.AuditLogger
	metrics        *metrics.Collector
	logger         *zap.Logger
	devResets      devreset.Store
	returnToCaller bool
	now            func() time.Time
}

// Option customizes an AuthService.
type Option func(*AuthService)

// WithAuditLogger records auth events on l.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *AuthService) { s.audit = l }
}

// WithMetrics records login failures on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *AuthService) { s.metrics = c }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDevResetStore hands every minted reset token to store and returns it from
// ForgotPassword. Only for non-production use.
func WithDevResetStore(store devreset.Store) Option {
	return func(s *AuthService) {
		s.devResets = store
		s.returnToCaller = true
	}
}

// WithClock overrides the clock used for user timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService returns an AuthService. It hashes a throwaway password once so that login
// against an unknown email costs the same bcrypt work as a wrong password.
func NewAuthService(
	users UserRepo,
	credentials repository.CredentialStore,
	sessions *sessionservice.Manager,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	opts ...Option,
) (*AuthService, error) {
	dummy, err := hasher.Hash([]byte(uuid.New().String()))
	if err != nil {
		return nil, fmt.Errorf("auth service: dummy hash: %w", err)
	}
	s := &AuthService{
		users:       users,
		credentials: credentials,
		sessions:    sessions,
		hasher:      hasher,
		tokens:      tokens,
		dummyHash:   dummy,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a user with the given credential and issues a token pair.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client sessiondomain.ClientContext) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = userdomain.RoleStudent
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(in.Password))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	pair, err := s.sessions.Issue(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, audit.ActionRegister, audit.ResourceUser, string(user.Role))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Login verifies email and password and issues a token pair. Unknown email, wrong password
// and inactive accounts all return ErrInvalidCredentials after one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string, client sessiondomain.ClientContext) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.loginFailed(ctx, "", email)
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Verify(s.dummyHash, []byte(password))
		s.loginFailed(ctx, "", email)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, []byte(password)) || !user.IsActive {
		s.loginFailed(ctx, user.ID, email)
		return nil, ErrInvalidCredentials
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	pair, err := s.sessions.Issue(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, audit.ActionLoginSuccess, audit.ResourceSession, pair.SessionID)
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email string) {
	s.metrics.LoginFailed()
	s.logEvent(ctx, userID, audit.ActionLoginFailure, audit.ResourceUser, email)
}

// Refresh rotates refreshToken into a new pair. Errors are the session manager's sentinels.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client sessiondomain.ClientContext) (*AuthResult, error) {
	pair, user, err := s.sessions.Rotate(ctx, refreshToken, client)
	if err != nil {
		if isTokenRejection(err) {
			s.logEvent(ctx, "", audit.ActionRefreshRejected, audit.ResourceSession, err.Error())
		}
		return nil, err
	}
	s.logEvent(ctx, user.ID, audit.ActionRefresh, audit.ResourceSession, pair.SessionID)
	return &AuthResult{User: user, Tokens: pair}, nil
}

func isTokenRejection(err error) bool {
	return errors.Is(err, sessionservice.ErrTokenInvalid) ||
		errors.Is(err, sessionservice.ErrTokenRevokedOrUnknown) ||
		errors.Is(err, sessionservice.ErrUserNotFound)
}

// Logout revokes refreshToken when it belongs to userID; a foreign or unknown token is a no-op.
// With no token every session of userID is revoked.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return s.LogoutAll(ctx, userID)
	}
	ok, err := s.sessions.RevokeOwned(ctx, userID, refreshToken)
	if err != nil {
		return err
	}
	if ok {
		s.logEvent(ctx, userID, audit.ActionLogout, audit.ResourceSession, security.Fingerprint(refreshToken))
	}
	return nil
}

// LogoutAll revokes every session of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return err
	}
	s.logEvent(ctx, userID, audit.ActionLogoutAll, audit.ResourceSession, fmt.Sprintf("revoked=%d", n))
	return nil
}

// RevokeUserSessions revokes every session of targetUserID on behalf of an administrator.
func (s *AuthService) RevokeUserSessions(ctx context.Context, actorID, targetUserID string) (int64, error) {
	u, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, sessionservice.ErrUserNotFound
	}
	n, err := s.sessions.RevokeAll(ctx, targetUserID)
	if err != nil {
		return 0, err
	}
	s.logEvent(ctx, actorID, audit.ActionSessionsRevokedByAdmin, audit.ResourceUser, fmt.Sprintf("target=%s revoked=%d", targetUserID, n))
	return n, nil
}

// ForgotPassword mints a reset token for an existing active account. The outcome is not
// revealed to the caller: the returned token is empty unless a dev reset store is configured.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || !user.IsActive {
		return "", nil
	}
	token, exp, err := s.tokens.IssueReset(user.ID, security.Fingerprint(user.PasswordHash))
	if err != nil {
		return "", err
	}
	s.logEvent(ctx, user.ID, audit.ActionPasswordResetRequested, audit.ResourceUser, "")
	if !s.returnToCaller {
		return "", nil
	}
	if s.devResets != nil {
		s.devResets.Put(ctx, email, token, exp)
	}
	return token, nil
}

// ResetPassword sets a new credential using a reset token and revokes every session of the
// user in the same transaction. A token stops working once the credential it was minted for changes.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	claims, err := s.tokens.ValidateReset(resetToken)
	if err != nil {
		return ErrInvalidResetToken
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive || !security.FingerprintEqual(user.PasswordHash, claims.CredentialFingerprint) {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.setCredential(ctx, user.ID, newPassword); err != nil {
		return err
	}
	s.logEvent(ctx, user.ID, audit.ActionPasswordReset, audit.ResourceUser, "")
	return nil
}

// ChangePassword replaces the credential of userID after checking current, then revokes
// every session of the user. Deactivated accounts are refused like a wrong password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive || !s.hasher.Verify(user.PasswordHash, []byte(current)) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	if err := s.setCredential(ctx, user.ID, next); err != nil {
		return err
	}
	s.logEvent(ctx, user.ID, audit.ActionPasswordChanged, audit.ResourceUser, "")
	return nil
}

func (s *AuthService) setCredential(ctx context.Context, userID, password string) error {
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return err
	}
	n, err := s.credentials.ResetCredential(ctx, userID, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return sessionservice.ErrUserNotFound
		}
		return err
	}
	s.metrics.Revoked("all", n)
	return nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, resource, metadata string) {
	if s.audit != nil {
		s.audit.LogEvent(ctx, userID, action, resource, metadata)
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	return nil
}
