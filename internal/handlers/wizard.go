package handlers

import (
	"context"
	"log/slog"

	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type WizardHandler struct {
	wizard *wizard.Wizard
	hub    *events.Hub
}

func NewWizardHandler(w *wizard.Wizard, hub *events.Hub) *WizardHandler {
	return &WizardHandler{wizard: w, hub: hub}
}

func sessionJSON(s *wizard.Session) fiber.Map {
	return fiber.Map{
		"session":      s,
		"current_step": s.CurrentStep(),
	}
}

// sessionParams reads the account and the :id session parameter.
func sessionParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, fiber.ErrUnauthorized
	}
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, wizard.ErrSessionNotFound
	}
	return accountID, sessionID, nil
}

func (h *WizardHandler) ListSteps(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"steps": h.wizard.Steps()})
}

// StartSession opens a new session, or resumes a draft when chatbot_id is given.
func (h *WizardHandler) StartSession(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req struct {
		ChatbotID string `json:"chatbot_id"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	chatbotID := uuid.Nil
	if req.ChatbotID != "" {
		id, err := uuid.Parse(req.ChatbotID)
		if err != nil {
			return errorJSON(c, fiber.StatusNotFound, "Chatbot not found")
		}
		chatbotID = id
	}

	session, err := h.wizard.Start(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sessionJSON(session))
}

func (h *WizardHandler) GetSession(c *fiber.Ctx) error {
	accountID, sessionID, err := sessionParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	session, err := h.wizard.Get(c.UserContext(), accountID, sessionID)
	if err != nil {
		return wizardError(c, err)
	}
	return c.JSON(sessionJSON(session))
}

// Next submits the current step's payload. The body is the step's fields.
func (h *WizardHandler) Next(c *fiber.Ctx) error {
	accountID, sessionID, err := sessionParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	session, err := h.wizard.Next(c.UserContext(), accountID, sessionID, c.Body())
	if err != nil {
		return wizardError(c, err)
	}
	return c.JSON(sessionJSON(session))
}

func (h *WizardHandler) Back(c *fiber.Ctx) error {
	accountID, sessionID, err := sessionParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	session, exited, err := h.wizard.Back(c.UserContext(), accountID, sessionID)
	if err != nil {
		return wizardError(c, err)
	}
	resp := sessionJSON(session)
	resp["exited"] = exited
	return c.JSON(resp)
}

func (h *WizardHandler) Summary(c *fiber.Ctx) error {
	accountID, sessionID, err := sessionParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	summary, err := h.wizard.Summary(c.UserContext(), accountID, sessionID)
	if err != nil {
		return wizardError(c, err)
	}
	return c.JSON(summary)
}

func (h *WizardHandler) Cancel(c *fiber.Ctx) error {
	accountID, sessionID, err := sessionParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	if err := h.wizard.Cancel(c.UserContext(), accountID, sessionID); err != nil {
		return wizardError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Wizard session cancelled"})
}

// UpgradeCheck rejects plain HTTP requests to websocket routes.
func (h *WizardHandler) UpgradeCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Events streams the session's events as JSON text frames until the client
// disconnects.
func (h *WizardHandler) Events() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		accountID, _ := c.Locals("account_id").(uuid.UUID)
		notFound := fiber.Map{"error": true, "message": "Wizard session not found"}
		sessionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			sendJSON(c, uuid.Nil, notFound)
			return
		}
		if _, err := h.wizard.Get(context.Background(), accountID, sessionID); err != nil {
			sendJSON(c, sessionID, notFound)
			return
		}

		ch, unsubscribe := h.hub.Subscribe(sessionID)
		defer unsubscribe()

		// The read loop only notices the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if !sendJSON(c, sessionID, ev) {
					return
				}
			case <-closed:
				return
			}
		}
	})
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// sendJSON writes one frame and reports whether the stream is still usable.
func sendJSON(w jsonWriter, sessionID uuid.UUID, v interface{}) bool {
	if err := w.WriteJSON(v); err != nil {
		slog.Debug("Wizard event stream closed", "session_id", sessionID, "error", err)
		return false
	}
	return true
}
