package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/ahmetk3436/chatforge/internal/events"
	"github.com/ahmetk3436/chatforge/internal/middleware"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, accountID uuid.UUID, filter repository.AuditFilter) ([]models.AuditLog, int64, error)
}

type AuditHandler struct {
	store AuditStore
}

func NewAuditHandler(store AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// ListAuditLogs returns the account's audit logs, newest first, filterable by action.
func (h *AuditHandler) ListAuditLogs(c *fiber.Ctx) error {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "50"))
	filter := repository.AuditFilter{Action: c.Query("action"), Page: page, PerPage: perPage}
	page, perPage = filter.NormalizePage()

	logs, total, err := h.store.ListAuditLogs(c.UserContext(), accountID, filter)
	if err != nil {
		slog.Error("Failed to list audit logs", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to list audit logs")
	}

	return c.JSON(fiber.Map{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// recordAudit writes an audit entry. Failures are logged and never fail the request.
func recordAudit(ctx context.Context, store AuditStore, accountID uuid.UUID, actor, action, target string, details map[string]interface{}) {
	var detailsJSON datatypes.JSON
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			detailsJSON = datatypes.JSON(b)
		}
	}

	entry := models.AuditLog{
		AccountID: accountID,
		Actor:     actor,
		Action:    action,
		Target:    target,
		Details:   detailsJSON,
	}
	if err := store.CreateAuditLog(ctx, &entry); err != nil {
		slog.Error("Failed to write audit log", "action", action, "target", target, "error", err)
	}
}

// AuditPublisher turns chatbot activations into audit entries, whether they
// came from a wizard session or the finalize endpoint.
type AuditPublisher struct {
	store AuditStore
}

func NewAuditPublisher(store AuditStore) *AuditPublisher {
	return &AuditPublisher{store: store}
}

func (p *AuditPublisher) Publish(ctx context.Context, ev events.Event) error {
	if ev.Type != events.ChatbotActivated {
		return nil
	}
	details := map[string]interface{}{"activated_at": ev.OccurredAt}
	if ev.SessionID != uuid.Nil {
		details["session_id"] = ev.SessionID
	}
	recordAudit(ctx, p.store, ev.AccountID, ev.AccountID.String(), "chatbot.finalize", ev.ChatbotID.String(), details)
	return nil
}
