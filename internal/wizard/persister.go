package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ahmetk3436/chatforge/internal/metrics"
	"github.com/ahmetk3436/chatforge/internal/models"
	"github.com/ahmetk3436/chatforge/internal/repository"
	"github.com/google/uuid"
)

// Persister commits one step's payload into the chatbot aggregate. Every
// operation is idempotent: applying the same payload twice leaves the same
// aggregate as applying it once.
type Persister struct {
	store AggregateStore
	teams TeamStore
}

func NewPersister(store AggregateStore, teams TeamStore) *Persister {
	return &Persister{store: store, teams: teams}
}

type PersistResult struct {
	ChatbotID uuid.UUID
	// Created is true when step 1 inserted the draft rather than updating it.
	Created bool
}

// Persist dispatches payload to the persister of its step. For step 1
// chatbotID is the id to create or update; for steps 2-5 it must be the id
// step 1 assigned.
func (p *Persister) Persist(ctx context.Context, accountID, chatbotID uuid.UUID, payload StepPayload) (PersistResult, error) {
	start := time.Now()
	defer func() {
		if payload != nil {
			metrics.StepPersistDuration.WithLabelValues(strconv.Itoa(int(payload.Step()))).Observe(time.Since(start).Seconds())
		}
	}()

	switch pl := payload.(type) {
	case BasicInfo:
		bot, created, err := p.SaveBasicInfo(ctx, accountID, chatbotID, pl)
		if err != nil {
			return PersistResult{}, err
		}
		return PersistResult{ChatbotID: bot.ID, Created: created}, nil
	case ConfigPayload:
		if err := p.SaveConfiguration(ctx, accountID, chatbotID, pl); err != nil {
			return PersistResult{}, err
		}
		return PersistResult{ChatbotID: chatbotID}, nil
	case nil:
		return PersistResult{}, fmt.Errorf("%w: empty payload", ErrUnknownStep)
	default:
		return PersistResult{}, fmt.Errorf("%w: step %d has nothing to persist", ErrUnknownStep, payload.Step())
	}
}

// SaveBasicInfo creates the draft chatbot and its empty configuration under
// chatbotID, or updates name, description, website and team when the row
// already exists.
func (p *Persister) SaveBasicInfo(ctx context.Context, accountID, chatbotID uuid.UUID, info BasicInfo) (*models.Chatbot, bool, error) {
	if chatbotID == uuid.Nil {
		return nil, false, fmt.Errorf("save basic info: %w", ErrPrecondition)
	}

	var team *models.Team
	if info.Team != "" {
		t, err := p.teams.FindOrCreateTeam(ctx, accountID, info.Team)
		if err != nil {
			return nil, false, persistErr("resolve team", err)
		}
		team = t
	}
	var teamID *uuid.UUID
	if team != nil {
		id := team.ID
		teamID = &id
	}

	bot, err := p.store.Load(ctx, accountID, chatbotID)
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"name":        info.Name,
			"description": info.Description,
			"website_url": info.WebsiteURL,
			"team_id":     teamID,
		}
		if err := p.store.UpdateChatbot(ctx, accountID, chatbotID, updates); err != nil {
			return nil, false, persistErr("update chatbot", err)
		}
		bot.Name = info.Name
		bot.Description = info.Description
		bot.WebsiteURL = info.WebsiteURL
		bot.TeamID = teamID
		bot.Team = team
		return bot, false, nil
	case errors.Is(err, ErrNotFound):
		bot = &models.Chatbot{
			ID:          chatbotID,
			AccountID:   accountID,
			Name:        info.Name,
			Description: info.Description,
			WebsiteURL:  info.WebsiteURL,
			TeamID:      teamID,
			Status:      models.ChatbotStatusDraft,
		}
		if err := p.store.CreateDraft(ctx, bot); err != nil {
			// The id exists under another account.
			if errors.Is(err, repository.ErrConflict) {
				return nil, false, ErrNotFound
			}
			return nil, false, persistErr("create chatbot", err)
		}
		bot.Team = team
		return bot, true, nil
	default:
		return nil, false, persistErr("load chatbot", err)
	}
}

// SaveConfiguration merges the columns owned by payload's step and leaves
// every other configuration column untouched.
func (p *Persister) SaveConfiguration(ctx context.Context, accountID, chatbotID uuid.UUID, payload ConfigPayload) error {
	if chatbotID == uuid.Nil {
		return fmt.Errorf("save step %d: %w", payload.Step(), ErrPrecondition)
	}
	err := p.store.UpdateConfiguration(ctx, accountID, chatbotID, payload.columns(), payload.apply)
	return persistErr(fmt.Sprintf("save step %d", payload.Step()), err)
}
