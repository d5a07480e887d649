package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/ahmetk3436/chatforge/internal/wizard"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ChatbotHandler serves the chatbot collection and the stateless step
// endpoints. The step endpoints share the validator, persister and finalizer
// with the wizard sessions.
type ChatbotHandler struct {
	store     repository.Store
	persister *wizard.Persister
	finalizer *wizard.Finalizer
	publisher events.Publisher
}

func NewChatbotHandler(store repository.Store, persister *wizard.Persister, finalizer *wizard.Finalizer, publisher events.Publisher) *ChatbotHandler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ChatbotHandler{store: store, persister: persister, finalizer: finalizer, publisher: publisher}
}

// chatbotParams reads the account and the :id chatbot parameter. An
// unparsable id is reported as not found.
func chatbotParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, fiber.ErrUnauthorized
	}
	chatbotID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, wizard.ErrNotFound
	}
	return accountID, chatbotID, nil
}

func actor(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

func (h *ChatbotHandler) ListChatbots(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	filter := repository.ChatbotFilter{Status: models.ChatbotStatus(c.Query("status"))}
	switch filter.Status {
	case "", models.ChatbotStatusDraft, models.ChatbotStatusActive, models.ChatbotStatusPaused:
	default:
		return errorJSON(c, fiber.StatusBadRequest, "status must be one of: draft, active, paused")
	}

	bots, err := h.store.ListChatbots(c.UserContext(), accountID, filter)
	if err != nil {
		slog.Error("Failed to list chatbots", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to list chatbots")
	}
	return c.JSON(fiber.Map{"chatbots": bots, "total": len(bots)})
}

func (h *ChatbotHandler) GetChatbot(c *fiber.Ctx) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	bot, err := h.store.Load(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, loadErr(err))
	}
	return c.JSON(bot)
}

func (h *ChatbotHandler) GetSummary(c *fiber.Ctx) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}
	bot, err := h.store.Load(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, loadErr(err))
	}
	return c.JSON(wizard.Project(bot))
}

// CreateChatbot commits step 1 under a fresh id.
func (h *ChatbotHandler) CreateChatbot(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	payload, err := wizard.DecodePayload(wizard.StepBasicInfo, c.Body())
	if err != nil {
		return wizardError(c, err)
	}
	if err := wizard.ValidateStep(wizard.StepBasicInfo, payload); err != nil {
		return wizardError(c, err)
	}

	bot, _, err := h.persister.SaveBasicInfo(c.UserContext(), accountID, uuid.New(), payload.(wizard.BasicInfo))
	if err != nil {
		return wizardError(c, err)
	}
	h.publish(c.UserContext(), events.ChatbotDraftCreated, accountID, bot.ID, wizard.StepBasicInfo)
	return c.Status(fiber.StatusCreated).JSON(bot)
}

// SaveStep commits one of steps 1-5 to an existing chatbot.
func (h *ChatbotHandler) SaveStep(c *fiber.Ctx) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}

	n, err := strconv.Atoi(c.Params("step"))
	step := wizard.StepID(n)
	if err != nil || !step.Valid() {
		return wizardError(c, wizard.ErrUnknownStep)
	}
	if step == wizard.StepReview {
		return errorJSON(c, fiber.StatusBadRequest, "Use the finalize endpoint for the review step")
	}

	payload, err := wizard.DecodePayload(step, c.Body())
	if err != nil {
		return wizardError(c, err)
	}
	if err := wizard.ValidateStep(step, payload); err != nil {
		return wizardError(c, err)
	}

	// Ids are only assigned by CreateChatbot and wizard sessions, so an
	// unknown id fails here for every step, step 1 included.
	if _, err := h.store.Load(c.UserContext(), accountID, chatbotID); err != nil {
		return wizardError(c, loadErr(err))
	}

	if _, err := h.persister.Persist(c.UserContext(), accountID, chatbotID, payload); err != nil {
		return wizardError(c, err)
	}

	bot, err := h.store.Load(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, loadErr(err))
	}
	return c.JSON(fiber.Map{
		"chatbot": bot,
		"step":    step,
		"summary": wizard.Project(bot),
	})
}

func (h *ChatbotHandler) Finalize(c *fiber.Ctx) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}

	res, err := h.finalizer.Finalize(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, err)
	}
	if res.Activated {
		h.publish(c.UserContext(), events.ChatbotActivated, accountID, chatbotID, wizard.StepReview)
	}

	return c.JSON(fiber.Map{
		"chatbot":   res.Chatbot,
		"activated": res.Activated,
	})
}

// DeleteChatbot removes the chatbot together with its configuration.
func (h *ChatbotHandler) DeleteChatbot(c *fiber.Ctx) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}

	if err := h.store.DeleteChatbot(c.UserContext(), accountID, chatbotID); err != nil {
		return wizardError(c, loadErr(err))
	}
	recordAudit(c.UserContext(), h.store, accountID, actor(c), "chatbot.delete", chatbotID.String(), nil)
	return c.JSON(fiber.Map{"message": "Chatbot deleted"})
}

func (h *ChatbotHandler) Pause(c *fiber.Ctx) error {
	return h.transition(c, models.ChatbotStatusActive, models.ChatbotStatusPaused, "chatbot.pause")
}

func (h *ChatbotHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, models.ChatbotStatusPaused, models.ChatbotStatusActive, "chatbot.resume")
}

// transition moves between active and paused. Usage counters are never touched.
func (h *ChatbotHandler) transition(c *fiber.Ctx, from, to models.ChatbotStatus, action string) error {
	accountID, chatbotID, err := chatbotParams(c)
	if err != nil {
		return wizardError(c, err)
	}

	if err := h.store.TransitionStatus(c.UserContext(), accountID, chatbotID, from, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return errorJSON(c, fiber.StatusConflict, "Chatbot is not "+string(from))
		}
		return wizardError(c, loadErr(err))
	}
	recordAudit(c.UserContext(), h.store, accountID, actor(c), action, chatbotID.String(),
		map[string]interface{}{"from": from, "to": to})

	bot, err := h.store.Load(c.UserContext(), accountID, chatbotID)
	if err != nil {
		return wizardError(c, loadErr(err))
	}
	return c.JSON(bot)
}

func (h *ChatbotHandler) GetUsage(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	usage, err := h.store.GetUsage(c.UserContext(), accountID)
	if err != nil {
		slog.Error("Failed to load usage", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load usage")
	}
	return c.JSON(usage)
}

func (h *ChatbotHandler) publish(ctx context.Context, typ events.Type, accountID, chatbotID uuid.UUID, step wizard.StepID) {
	ev := events.Event{
		Type:       typ,
		AccountID:  accountID,
		ChatbotID:  chatbotID,
		Step:       int(step),
		OccurredAt: time.Now(),
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish chatbot event", "type", typ, "chatbot_id", chatbotID, "error", err)
	}
}

// loadErr keeps not-found as is and marks anything else as a store failure.
func loadErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wizard.ErrNotFound
	}
	return &wizard.PersistenceError{Op: "load chatbot", Err: err}
}
