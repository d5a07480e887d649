package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/gofiber/fiber/v2"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// wizardError maps wizard and repository errors onto status codes. Foreign
// and missing chatbots share one message so existence never leaks.
func wizardError(c *fiber.Ctx, err error) error {
	var verr *wizard.ValidationError
	var perr *wizard.PersistenceError
	var ferr *fiber.Error

	switch {
	case errors.As(err, &ferr):
		return errorJSON(c, ferr.Code, ferr.Message)
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   true,
			"message": verr.Reason,
			"field":   verr.Field,
			"step":    verr.Step,
		})
	case errors.Is(err, wizard.ErrUnknownStep):
		return errorJSON(c, fiber.StatusBadRequest, "Unknown wizard step")
	case errors.Is(err, wizard.ErrSessionNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Wizard session not found")
	case errors.Is(err, wizard.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Chatbot not found")
	case errors.Is(err, wizard.ErrPrecondition):
		return errorJSON(c, fiber.StatusConflict, "Complete basic info before configuring the chatbot")
	case errors.Is(err, wizard.ErrSessionBusy):
		return errorJSON(c, fiber.StatusConflict, "Another step is still being saved")
	case errors.Is(err, wizard.ErrAlreadyFinalized):
		return errorJSON(c, fiber.StatusConflict, "Chatbot is already finalized")
	case errors.Is(err, repository.ErrConflict):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &perr):
		slog.Error("Persistence failure", "op", perr.Op, "path", c.Path(), "error", perr.Err)
		return errorJSON(c, fiber.StatusServiceUnavailable, "Failed to save, please retry")
	default:
		slog.Error("Unhandled error", "path", c.Path(), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Internal server error")
	}
}
