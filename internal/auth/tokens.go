package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer        = "demand-letter-generator"
	accessTokenExpiry  = 15 * time.Minute
	refreshTokenExpiry = 7 * 24 * time.Hour
)

// ErrInvalidToken covers expired, malformed and wrongly-signed tokens.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the JWT payload carried by both access and refresh tokens.
type Claims struct {
	FirmID string `json:"firm_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// UserID is the subject claim.
func (c *Claims) UserID() string { return c.Subject }

// TokenPair is an access/refresh token set.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	RefreshUntil time.Time `json:"-"`
}

// TokenIssuer signs and verifies token pairs. Refresh tokens use a separate
// secret when JWT_REFRESH_SECRET is set, falling back to the access secret.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewTokenIssuer reads signing secrets from the environment.
func NewTokenIssuer() (*TokenIssuer, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return nil, errors.New("auth: JWT_SECRET environment variable is not set")
	}
	refresh := strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET"))
	if refresh == "" {
		refresh = secret
	}
	return &TokenIssuer{accessSecret: []byte(secret), refreshSecret: []byte(refresh)}, nil
}

// NewTokenIssuerWithSecrets exists for tests and embedded use.
func NewTokenIssuerWithSecrets(access, refresh string) *TokenIssuer {
	if refresh == "" {
		refresh = access
	}
	return &TokenIssuer{accessSecret: []byte(access), refreshSecret: []byte(refresh)}
}

// GeneratePair issues an access/refresh token pair for the user.
func (t *TokenIssuer) GeneratePair(userID, firmID, email, role string) (TokenPair, error) {
	now := time.Now()
	refreshUntil := now.Add(refreshTokenExpiry)

	access, err := t.sign(t.accessSecret, userID, firmID, email, role, now, now.Add(accessTokenExpiry))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.sign(t.refreshSecret, userID, firmID, email, role, now, refreshUntil)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, RefreshUntil: refreshUntil}, nil
}

// VerifyAccess validates an access token and returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return t.verify(t.accessSecret, token)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(t.refreshSecret, token)
}

func (t *TokenIssuer) sign(secret []byte, userID, firmID, email, role string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &Claims{
		FirmID: firmID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (t *TokenIssuer) verify(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", tok.Method.Alg())
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
