// Package session issues and resolves the stateless signed session tokens
// carried by admin requests.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"blog-admin/internal/models"
)

const (
	TokenIssuer       = "blog-admin"
	DefaultTTL        = 30 * 24 * time.Hour
	DefaultCookieName = "blog_admin_session"

	clockSkew = 5 * time.Second
)

var (
	ErrMissingSecret = errors.New("session signing secret is not configured")
	ErrInvalidClaim  = errors.New("claim must carry an id and a valid role")
)

// Claims is the signed token payload. The subject is the account id.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Session is the identity reconstructed from a valid token.
type Session struct {
	User      models.Claim `json:"user"`
	ExpiresAt time.Time    `json:"expires"`
	TokenID   string       `json:"-"`
}

// Issuer signs and verifies HS256 session tokens with one shared secret.
type Issuer struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	now        func() time.Time
	parser     *jwt.Parser
}

// NewIssuer returns an Issuer. ttl <= 0 selects DefaultTTL and an empty
// cookieName selects DefaultCookieName. An empty secret is an error.
func NewIssuer(secret string, ttl time.Duration, cookieName string) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Issuer{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
		now:        time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(TokenIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) CookieName() string { return i.cookieName }

// Issue signs a token for claim and returns it with its expiry.
func (i *Issuer) Issue(claim models.Claim) (string, time.Time, error) {
	if strings.TrimSpace(claim.ID) == "" || !claim.Role.Valid() {
		return "", time.Time{}, ErrInvalidClaim
	}

	now := i.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Email: claim.Email,
		Name:  claim.Name,
		Role:  claim.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   claim.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Resolve extracts and verifies the session token on r. Any failure
// (missing, malformed, bad signature, wrong issuer, expired) yields nil.
func (i *Issuer) Resolve(r *http.Request) *Session {
	token := i.tokenFromRequest(r)
	if token == "" {
		return nil
	}
	return i.ResolveToken(token)
}

// ResolveToken verifies a raw token string.
func (i *Issuer) ResolveToken(token string) *Session {
	claims := &Claims{}
	parsed, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil
	}
	if strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return nil
	}
	return &Session{
		User: models.Claim{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		},
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		TokenID:   claims.ID,
	}
}

func (i *Issuer) tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(i.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// SetCookie stores token in an HttpOnly cookie expiring with the token.
func (i *Issuer) SetCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     i.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(expiresAt.Sub(i.now()).Seconds()),
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (i *Issuer) ClearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     i.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
