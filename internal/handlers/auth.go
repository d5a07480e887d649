package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

var validate = validator.New()

type AuthHandler struct {
	store     AccountStore
	jwtSecret string
}

func NewAuthHandler(store AccountStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Name     string `json:"name" validate:"max=100"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "A valid email and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create account")
	}

	account := &models.Account{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
	}
	if err := h.store.CreateAccount(c.UserContext(), account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return errorJSON(c, fiber.StatusConflict, "Email is already registered")
		}
		slog.Error("Failed to create account", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create account")
	}

	slog.Info("Account registered", "account_id", account.ID)
	return h.issueTokens(c, fiber.StatusCreated, account)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	account, err := h.store.GetAccountByEmail(c.UserContext(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("Failed to load account", "error", err)
		}
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid credentials")
	}

	return h.issueTokens(c, fiber.StatusOK, account)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	claims, err := middleware.ParseToken(req.RefreshToken, h.jwtSecret, middleware.TokenRefresh)
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid or expired refresh token")
	}

	account, err := h.store.GetAccount(c.UserContext(), uuid.MustParse(claims.AccountID))
	if err != nil {
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid or expired refresh token")
	}

	return h.issueTokens(c, fiber.StatusOK, account)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	account, err := h.store.GetAccount(c.UserContext(), accountID)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Account not found")
	}
	return c.JSON(account)
}

func (h *AuthHandler) issueTokens(c *fiber.Ctx, status int, account *models.Account) error {
	access, refresh, err := middleware.GenerateTokens(account.ID, account.Email, h.jwtSecret)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to generate tokens")
	}

	return c.Status(status).JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"account":       account,
	})
}
