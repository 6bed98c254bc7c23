package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"sponsor-portal/internal/domain"
)

const CookieName = "sp_session"

const issuer = "sponsor-portal"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieSigner issues and verifies the HS256 token carried in the browser
// session cookie. The token only names the browser session; the backend
// credential never leaves the server.
type CookieSigner struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewCookieSigner(secret string, ttl time.Duration, secure bool) (*CookieSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &CookieSigner{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}, nil
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *CookieSigner) Sign(sessionID string) (string, error) {
	if sessionID == "" {
		return "", domain.ErrInvalidInput
	}
	now := s.now()
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *CookieSigner) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidCookie
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return "", errors.Join(ErrInvalidCookie, err)
	}
	if claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}

func (s *CookieSigner) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *CookieSigner) ClearCookie() *http.Cookie {
	c := s.Cookie("")
	c.MaxAge = -1
	return c
}
