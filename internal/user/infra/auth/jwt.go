package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const principalKey = "principal"

// accessTokenParam carries the token for websocket upgrades, where browsers cannot set headers.
const accessTokenParam = "access_token"

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the token claims: sub is the user id.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Verifier signs and checks HS256 access tokens.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs a token for the given principal valid for ttl.
func (v *Verifier) Issue(p domain.Principal, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify parses tokenString and returns the principal it carries.
func (v *Verifier) Verify(tokenString string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return domain.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return domain.Principal{ID: id, Role: claims.Role}, nil
}

// Required rejects requests without a valid bearer token.
func (v *Verifier) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return unauthorized(c, err.Error())
		}
		p, err := v.Verify(tokenString)
		if err != nil {
			log.Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			return unauthorized(c, ErrInvalidToken.Error())
		}
		c.Locals(principalKey, p)
		return c.Next()
	}
}

// Optional stores the principal when a valid token is present and lets anonymous requests through.
func (v *Verifier) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Next()
		}
		if p, err := v.Verify(tokenString); err == nil {
			c.Locals(principalKey, p)
		}
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Required or Optional.
func PrincipalFrom(c *fiber.Ctx) (domain.Principal, bool) {
	p, ok := c.Locals(principalKey).(domain.Principal)
	return p, ok
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		if q := c.Query(accessTokenParam); q != "" {
			return q, nil
		}
		return "", errors.New("authorization header is required")
	}
	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header format must be 'Bearer <token>'")
	}
	return parts[1], nil
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  fiber.StatusUnauthorized,
		"message": "authentication required",
		"error":   message,
	})
}
