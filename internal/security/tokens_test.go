package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newClockedProvider(t *testing.T, leeway time.Duration) (*TokenProvider, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	p, err := NewTokenProvider(TokenConfig{
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		Issuer:        "test-issuer",
		Audience:      "test-audience",
		Leeway:        leeway,
	}, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	return p, clock
}

func TestTokenProvider_IssueAccessAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, exp, err := p.IssueAccess("u1", "a@x.com", "student")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if access == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	claims, err := p.ValidateAccess(access)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if claims.UserID() != "u1" || claims.Email != "a@x.com" || claims.Role != "student" {
		t.Errorf("ValidateAccess: got userID=%q email=%q role=%q", claims.UserID(), claims.Email, claims.Role)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("iat/exp not set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Errorf("access lifetime = %v, want 15m", got)
	}
}

func TestTokenProvider_IssueRefreshAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	refresh, jti, exp, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh == "" || jti == "" {
		t.Fatal("refresh token or jti empty")
	}
	if d := time.Until(exp); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour {
		t.Errorf("refresh expiry in %v, want ~7d", d)
	}
	claims, err := p.ValidateRefresh(refresh)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	if claims.Subject != "u1" || claims.ID != jti {
		t.Errorf("ValidateRefresh: got subject=%q jti=%q", claims.Subject, claims.ID)
	}

	refresh2, jti2, _, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if refresh2 == refresh || jti2 == jti {
		t.Error("two refresh tokens for the same user must differ")
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	for _, s := range []string{"", "invalid-token", "a.b.c"} {
		if _, err := p.ValidateAccess(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateAccess(%q): want ErrInvalidToken, got %v", s, err)
		}
		if _, err := p.ValidateRefresh(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateRefresh(%q): want ErrInvalidToken, got %v", s, err)
		}
	}
}

func TestTokenProvider_AccessExpiryBoundary(t *testing.T) {
	p, clock := newClockedProvider(t, 0)
	issuedAt := clock.t
	access, exp, err := p.IssueAccess("u1", "a@x.com", "student")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !exp.Equal(issuedAt.Add(15 * time.Minute)) {
		t.Fatalf("exp = %v, want %v", exp, issuedAt.Add(15*time.Minute))
	}

	testCases := []struct {
		name   string
		at     time.Time
		wantOK bool
	}{
		{"just issued", issuedAt, true},
		{"one second before expiry", exp.Add(-time.Second), true},
		{"at expiry", exp, false},
		{"one second after expiry", exp.Add(time.Second), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock.t = tc.at
			_, err := p.ValidateAccess(access)
			if tc.wantOK && err != nil {
				t.Errorf("ValidateAccess: %v", err)
			}
			if !tc.wantOK && !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ValidateAccess: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenProvider_AccessExpiryWithLeeway(t *testing.T) {
	p, clock := newClockedProvider(t, 5*time.Second)
	access, exp, err := p.IssueAccess("u1", "a@x.com", "student")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	clock.t = exp.Add(time.Second)
	if _, err := p.ValidateAccess(access); err != nil {
		t.Errorf("within leeway: ValidateAccess: %v", err)
	}
	clock.t = exp.Add(6 * time.Second)
	if _, err := p.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("past leeway: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_KeySeparation(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	access, _, err := p.IssueAccess("u1", "a@x.com", "admin")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, _, err := p.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := p.ValidateRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh: %v", err)
	}
	if _, err := p.ValidateAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: %v", err)
	}

	// A refresh-shaped token signed with the access secret must not verify.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "forged",
			Subject:   "u1",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeRefresh,
	})
	forgedStr, err := forged.SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := p.ValidateRefresh(forgedStr); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh forged with access secret accepted: %v", err)
	}
}

func TestTokenProvider_RejectsOtherAlgorithms(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-audience"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	})
	s, err := tok.SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := p.ValidateAccess(s); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("HS512 token accepted: %v", err)
	}
}

func TestTokenProvider_IssuerAndAudienceMismatch(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	other, err := NewTokenProvider(TokenConfig{
		AccessSecret:  []byte(testAccessSecret),
		RefreshSecret: []byte(testRefreshSecret),
		Issuer:        "other-issuer",
		Audience:      "test-audience",
	})
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	access, _, err := other.IssueAccess("u1", "a@x.com", "student")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.ValidateAccess(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token from other issuer accepted: %v", err)
	}
}

func TestTokenProvider_ResetToken(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	fp := Fingerprint("$2a$10$somehash")
	reset, _, err := p.IssueReset("u1", fp)
	if err != nil {
		t.Fatalf("IssueReset: %v", err)
	}
	claims, err := p.ValidateReset(reset)
	if err != nil {
		t.Fatalf("ValidateReset: %v", err)
	}
	if claims.Subject != "u1" || claims.CredentialFingerprint != fp {
		t.Errorf("ValidateReset: subject=%q cfp=%q", claims.Subject, claims.CredentialFingerprint)
	}
	if _, err := p.ValidateAccess(reset); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reset token accepted as access: %v", err)
	}
	access, _, _ := p.IssueAccess("u1", "a@x.com", "student")
	if _, err := p.ValidateReset(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as reset: %v", err)
	}
}

func TestNewTokenProvider_SecretValidation(t *testing.T) {
	testCases := []struct {
		name    string
		access  string
		refresh string
	}{
		{"missing access", "", "r"},
		{"missing refresh", "a", ""},
		{"equal secrets", "same", "same"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenProvider(TokenConfig{AccessSecret: []byte(tc.access), RefreshSecret: []byte(tc.refresh)})
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("want ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestNewTokenProvider_Defaults(t *testing.T) {
	p, err := NewTokenProvider(TokenConfig{AccessSecret: []byte("a"), RefreshSecret: []byte("b")})
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	if p.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", p.AccessTTL())
	}
	if p.RefreshTTL() != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", p.RefreshTTL())
	}
}
