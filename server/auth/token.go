package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/indieinfra/plaza/config"
)

type tokenKeyType struct{}

var tokenKey = tokenKeyType{}

// Claims are the access token claims. The subject is the id of the authenticated user.
type Claims struct {
	jwt.RegisteredClaims
}

var (
	ErrEmptyToken     = errors.New("received empty token")
	ErrInvalidToken   = errors.New("token validation failed")
	ErrMissingSubject = errors.New("token has no subject")
)

// ExtractBearerToken extracts a Bearer token from an Authorization header value.
// Returns an empty string if the header is not present, malformed, or not a Bearer token.
func ExtractBearerToken(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

func AddToken(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, tokenKey, claims)
}

func GetToken(ctx context.Context) *Claims {
	claims, ok := ctx.Value(tokenKey).(*Claims)
	if !ok {
		return nil
	}

	return claims
}

// Subject returns the authenticated user id, or "" outside an authenticated request.
func Subject(ctx context.Context) string {
	if claims := GetToken(ctx); claims != nil {
		return claims.Subject
	}

	return ""
}

// VerifyAccessToken checks an HS256 token signed with the configured secret.
func VerifyAccessToken(cfg *config.Auth, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JwtSecret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// IssueAccessToken signs a token for subject. It backs the CLI token command and tests.
func IssueAccessToken(cfg *config.Auth, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JwtSecret))
}
