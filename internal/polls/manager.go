package polls

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
	"github.com/swarooperla/Live-Polling-System/internal/students"
)

// Broadcast event names, sent to every connected client.
const (
	EventNewPoll       = "new_poll"
	EventPollUpdate    = "poll_update"
	EventPollEnded     = "poll_ended"
	EventAllPollsEnded = "all_polls_ended"
)

// Store is the poll persistence surface the manager drives.
type Store interface {
	Insert(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	FindActive(ctx context.Context) (*models.Poll, error)
	IncrementVote(ctx context.Context, id uuid.UUID, choice int) (*models.Poll, error)
	End(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	ClearActive(ctx context.Context) error
}

// Broadcaster delivers an event to all currently-connected clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Roster supplies the registered participant names; a fresh poll re-syncs
// who is present.
type Roster interface {
	Names(ctx context.Context) ([]string, error)
}

// Manager is the poll lifecycle state machine: one active poll at a time,
// votes while active, an explicit end transition. Every successful mutation
// emits exactly one broadcast event.
type Manager struct {
	store  Store
	cache  *Cache
	bcast  Broadcaster
	roster Roster
	logger *zap.Logger
}

// NewManager creates a poll lifecycle manager. cache may be nil.
func NewManager(store Store, cache *Cache, bcast Broadcaster, roster Roster, logger *zap.Logger) *Manager {
	return &Manager{store: store, cache: cache, bcast: bcast, roster: roster, logger: logger}
}

// Create validates the request, persists a new active poll and broadcasts it
// together with the current roster. Fails with ErrPollInProgress while
// another poll is active; the running poll is never auto-ended.
func (m *Manager) Create(ctx context.Context, question string, choices []string, timeLimit int) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if len(choices) < 2 {
		return nil, ErrTooFewChoices
	}
	for _, text := range choices {
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyChoice
		}
	}
	if timeLimit == 0 {
		timeLimit = models.DefaultTimeLimit
	}
	if timeLimit < 0 {
		return nil, ErrBadTimeLimit
	}

	// Friendly pre-check; the store's uniqueness guard closes the race.
	active, err := m.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrPollInProgress
	}

	p := &models.Poll{
		ID:        uuid.New(),
		Question:  question,
		Choices:   make([]models.Choice, len(choices)),
		IsActive:  true,
		TimeLimit: timeLimit,
	}
	for i, text := range choices {
		p.Choices[i] = models.Choice{Text: text}
	}
	if err := m.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	m.cache.Set(ctx, p)

	m.bcast.Broadcast(EventNewPoll, p)
	m.broadcastRoster(ctx)
	m.logger.Info("poll created",
		zap.String("poll_id", p.ID.String()),
		zap.Int("choices", len(p.Choices)),
		zap.Int("time_limit_sec", p.TimeLimit),
	)
	return p, nil
}

// SubmitAnswer records one vote for a choice of the active poll and
// broadcasts the updated tallies. The increment is atomic at the store, so
// concurrent submissions are never lost.
func (m *Manager) SubmitAnswer(ctx context.Context, pollID uuid.UUID, choiceIndex int) (*models.Poll, error) {
	p, err := m.store.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrPollNotActive
	}
	if choiceIndex < 0 || choiceIndex >= len(p.Choices) {
		return nil, ErrChoiceOutOfRange
	}

	updated, err := m.store.IncrementVote(ctx, pollID, choiceIndex)
	if err != nil {
		return nil, err
	}
	m.cache.Set(ctx, updated)
	m.bcast.Broadcast(EventPollUpdate, updated)
	return updated, nil
}

// End transitions the poll to inactive and broadcasts the final tallies.
// Ending an unknown or already-ended poll reports ErrPollNotFound.
func (m *Manager) End(ctx context.Context, pollID uuid.UUID) (*models.Poll, error) {
	p, err := m.store.End(ctx, pollID)
	if err != nil {
		return nil, err
	}
	m.cache.Invalidate(ctx)
	m.bcast.Broadcast(EventPollEnded, p)
	m.logger.Info("poll ended", zap.String("poll_id", p.ID.String()))
	return p, nil
}

// ClearActive deactivates every active poll and broadcasts a global
// all-polls-ended signal. No-op when nothing is active.
func (m *Manager) ClearActive(ctx context.Context) error {
	if err := m.store.ClearActive(ctx); err != nil {
		return err
	}
	m.cache.Invalidate(ctx)
	m.bcast.Broadcast(EventAllPollsEnded, nil)
	return nil
}

// Active returns the current active poll, or nil when none exists.
func (m *Manager) Active(ctx context.Context) (*models.Poll, error) {
	if p, ok := m.cache.Get(ctx); ok {
		return p, nil
	}
	p, err := m.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if p != nil {
		m.cache.Set(ctx, p)
	}
	return p, nil
}

func (m *Manager) broadcastRoster(ctx context.Context) {
	names, err := m.roster.Names(ctx)
	if err != nil {
		m.logger.Error("list participant names", zap.Error(err))
		return
	}
	m.bcast.Broadcast(students.EventParticipantNames, names)
}
