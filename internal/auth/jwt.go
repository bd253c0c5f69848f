package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/LRZ-BADW/avina/internal/clock"
	"github.com/LRZ-BADW/avina/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultIssuer is the issuer of tokens minted by avina
const DefaultIssuer = "avina"

// Claims represents JWT claims with custom fields. The subject is the
// numeric user ID.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user ID carried in the subject
func (c *Claims) UserID() (uint32, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint32(id), nil
}

// Auth handles authentication logic
type Auth struct {
	jwtSecret []byte
	accessTTL time.Duration
	issuer    string
	clock     clock.Clock
}

// NewAuth creates a new Auth instance
func NewAuth(jwtSecret string, accessTTL time.Duration, issuer string) *Auth {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Auth{
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		issuer:    issuer,
		clock:     clock.Real{},
	}
}

// WithClock replaces the clock used for issuing and validating tokens
func (a *Auth) WithClock(clk clock.Clock) *Auth {
	a.clock = clk
	return a
}

// GenerateAccessToken generates a JWT access token for user
func (a *Auth) GenerateAccessToken(user *types.User) (string, error) {
	now := a.clock.Now()
	claims := &Claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        types.GenerateTokenID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses a JWT access token
func (a *Auth) ValidateAccessToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithTimeFunc(a.clock.Now),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetAccessTTL returns the access token TTL
func (a *Auth) GetAccessTTL() time.Duration {
	return a.accessTTL
}
