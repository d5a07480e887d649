package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func GenerateTokens(accountID uuid.UUID, email, secret string) (string, string, error) {
	// Access token (15 min)
	access, err := signToken(accountID, email, TokenAccess, secret, 15*time.Minute)
	if err != nil {
		return "", "", err
	}

	// Refresh token (7 days)
	refresh, err := signToken(accountID, email, TokenRefresh, secret, 7*24*time.Hour)
	if err != nil {
		return "", "", err
	}

	return access, refresh, nil
}

func signToken(accountID uuid.UUID, email, tokenType, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: accountID.String(),
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token of the given type.
func ParseToken(tokenStr, secret, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, errors.New("wrong token type")
	}
	if _, err := uuid.Parse(claims.AccountID); err != nil {
		return nil, errors.New("invalid account id claim")
	}
	return claims, nil
}

// JWTProtected authenticates the request and stores the account id in
// c.Locals("account_id"). Websocket upgrades may pass the token as the
// access_token query parameter because browsers cannot set headers on them.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ""
		auth := c.Get("Authorization")
		switch {
		case auth != "":
			tokenStr = strings.TrimPrefix(auth, "Bearer ")
			if tokenStr == auth {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error":   true,
					"message": "Invalid authorization format",
				})
			}
		case c.Query("access_token") != "" && strings.EqualFold(c.Get("Upgrade"), "websocket"):
			tokenStr = c.Query("access_token")
		default:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Missing authorization header",
			})
		}

		claims, err := ParseToken(tokenStr, secret, TokenAccess)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   true,
				"message": "Invalid or expired token",
			})
		}

		c.Locals("account_id", uuid.MustParse(claims.AccountID))
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// AccountID returns the authenticated account of the request.
func AccountID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals("account_id").(uuid.UUID)
	return id, ok && id != uuid.Nil
}
