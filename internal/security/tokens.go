package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, of the wrong type or signed with another key.
	ErrInvalidToken = errors.New("invalid token")
)

// Token types carried in the typ claim. A token is only accepted by the validator for its own type.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeReset   = "password_reset"
)

// Default lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
)

// AccessClaims holds JWT claims for the access token. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
}

// UserID returns the subject of the access token.
func (c *AccessClaims) UserID() string { return c.Subject }

// RefreshClaims holds JWT claims for the refresh token. ID (jti) is the random
// unique value the signature envelope wraps; Subject is the owning user id.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// ResetClaims holds JWT claims for a password-reset token. CredentialFingerprint
// binds the token to the credential hash current at issuance, so the token stops
// verifying once the password changes.
type ResetClaims struct {
	jwt.RegisteredClaims
	CredentialFingerprint string `json:"cfp"`
	Type                  string `json:"typ"`
}

// TokenConfig configures a TokenProvider. AccessSecret and RefreshSecret must be distinct.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
	// Leeway is the clock-skew tolerance applied to exp/iat checks. Zero means none.
	Leeway time.Duration
}

// TokenOption customizes a TokenProvider.
type TokenOption func(*TokenProvider)

// WithClock overrides the provider's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(p *TokenProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// TokenProvider issues and validates HS256 JWTs. Access and password-reset tokens
// are signed with the access secret, refresh tokens with the refresh secret.
// Validation performs no I/O.
type TokenProvider struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenProvider validates cfg, fills in default lifetimes and returns a provider.
// Returns ErrInvalidKey when a secret is missing or both secrets are equal.
func NewTokenProvider(cfg TokenConfig, opts ...TokenOption) (*TokenProvider, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrInvalidKey
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrInvalidKey
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.Leeway < 0 {
		cfg.Leeway = 0
	}
	p := &TokenProvider{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AccessTTL returns the configured access-token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.cfg.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.cfg.RefreshTTL }

// IssueAccess issues a short-lived access JWT carrying the user's id, email and role.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(userID, email, role string) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.cfg.AccessTTL)
	claims := AccessClaims{
		RegisteredClaims: p.registered(userID, uuid.NewString(), now, expiresAt),
		Email:            email,
		Role:             role,
		Type:             TokenTypeAccess,
	}
	token, err = p.sign(claims, p.cfg.AccessSecret)
	return token, claims.ExpiresAt.Time, err
}

// IssueRefresh issues a long-lived refresh JWT wrapping a fresh random jti.
// Returns the token, the jti and the expiration time.
func (p *TokenProvider) IssueRefresh(userID string) (token, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	now := p.now().UTC()
	expiresAt = now.Add(p.cfg.RefreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: p.registered(userID, jti, now, expiresAt),
		Type:             TokenTypeRefresh,
	}
	token, err = p.sign(claims, p.cfg.RefreshSecret)
	return token, jti, claims.ExpiresAt.Time, err
}

// IssueReset issues a password-reset JWT bound to credentialFingerprint.
func (p *TokenProvider) IssueReset(userID, credentialFingerprint string) (token string, expiresAt time.Time, err error) {
	now := p.now().UTC()
	expiresAt = now.Add(p.cfg.ResetTTL)
	claims := ResetClaims{
		RegisteredClaims:      p.registered(userID, uuid.NewString(), now, expiresAt),
		CredentialFingerprint: credentialFingerprint,
		Type:                  TokenTypeReset,
	}
	token, err = p.sign(claims, p.cfg.AccessSecret)
	return token, claims.ExpiresAt.Time, err
}

// ValidateAccess parses and validates an access token (signature, exp, iss, aud, typ).
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := p.parse(tokenString, claims, p.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefresh parses and validates the signature envelope of a refresh token.
// It does not consult the session store.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := p.parse(tokenString, claims, p.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateReset parses and validates a password-reset token.
func (p *TokenProvider) ValidateReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := p.parse(tokenString, claims, p.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeReset || claims.Subject == "" || claims.CredentialFingerprint == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) registered(subject, jti string, now, expiresAt time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    p.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	if p.cfg.Audience != "" {
		rc.Audience = jwt.ClaimStrings{p.cfg.Audience}
	}
	return rc
}

func (p *TokenProvider) sign(claims jwt.Claims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(p.cfg.Leeway),
		jwt.WithTimeFunc(p.now),
	}
	if p.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.cfg.Issuer))
	}
	if p.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.cfg.Audience))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
