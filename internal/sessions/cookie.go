package sessions

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultCookieName carries the signed session id.
const DefaultCookieName = "chatd_session"

const issuer = "chatd"

// CookieOptions configures a CookieCodec.
type CookieOptions struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// CookieCodec issues and verifies session cookies. The cookie value is an
// HS256 JWT whose subject is the session id.
type CookieCodec struct {
	secret []byte
	name   string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieCodec(secret string, opts CookieOptions) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	c := &CookieCodec{
		secret: []byte(secret),
		name:   opts.Name,
		ttl:    opts.TTL,
		secure: opts.Secure,
		now:    time.Now,
	}
	if c.name == "" {
		c.name = DefaultCookieName
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	return c, nil
}

// Name returns the cookie name.
func (c *CookieCodec) Name() string { return c.name }

// Encode signs id into a token.
func (c *CookieCodec) Encode(id string) (string, error) {
	now := c.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies token and returns the session id it carries.
func (c *CookieCodec) Decode(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("invalid session token: missing subject")
	}
	return claims.Subject, nil
}

// SessionID returns the id carried by r's cookie, or a fresh one when the
// cookie is missing or invalid. The cookie is (re)issued on w either way so
// active sessions keep sliding forward.
func (c *CookieCodec) SessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	id := ""
	if ck, err := r.Cookie(c.name); err == nil {
		if got, err := c.Decode(ck.Value); err == nil {
			id = got
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	token, err := c.Encode(id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}
