package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenTooLarge    = errors.New("token size exceeds maximum allowed")
)

const (
	// MaxTokenSize bounds what the parser will look at (16KB).
	MaxTokenSize = 16 * 1024
	// MinSecretKeyLength for HMAC keys.
	MinSecretKeyLength = 32
	// Issuer is stamped on every token.
	Issuer = "blobkit"
	// DefaultTTL is used when Issue is called without a lifetime.
	DefaultTTL = time.Hour
)

// Scopes granted by tokens.
const (
	ScopeRead  = "blobs:read"
	ScopeWrite = "blobs:write"
)

// Claims represents the JWT claims structure.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. Write implies read.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || (scope == ScopeRead && s == ScopeWrite) {
			return true
		}
	}
	return false
}

// TokenService issues and validates HS256 tokens.
type TokenService struct {
	secretKey []byte
	logger    logging.Logger
}

// NewTokenService creates a token service for secretKey.
func NewTokenService(secretKey string, logger logging.Logger) (*TokenService, error) {
	if len(secretKey) < MinSecretKeyLength {
		return nil, fmt.Errorf("secret key must be at least %d characters long", MinSecretKeyLength)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &TokenService{
		secretKey: []byte(secretKey),
		logger:    logger,
	}, nil
}

// Issue creates a signed token for subject. Without scopes the token is read-only.
func (s *TokenService) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("invalid input: subject cannot be empty")
	}
	if len(subject) > 255 {
		return "", fmt.Errorf("invalid input: subject exceeds maximum length")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if len(scopes) == 0 {
		scopes = []string{ScopeRead}
	}

	now := time.Now()
	claims := &Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   subject,
			ID:        generateTokenID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.Error("Failed to sign token", logging.NewField("error", err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if len(tokenString) > MaxTokenSize {
		return "", ErrTokenTooLarge
	}
	return tokenString, nil
}

// Validate validates a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	if len(tokenString) > MaxTokenSize {
		return nil, ErrTokenTooLarge
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Reject anything but HMAC to prevent algorithm confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(Issuer))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		}
		s.logger.Warn("Token validation failed", logging.NewField("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub is required", ErrInvalidClaims)
	}
	return claims, nil
}

// generateTokenID generates a unique token ID (JTI claim).
func generateTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
