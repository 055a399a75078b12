package students

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/swarooperla/Live-Polling-System/internal/models"
)

// EventParticipantNames carries the ordered roster to all clients.
const EventParticipantNames = "participant_names"

// Store is the student persistence surface the registry drives.
type Store interface {
	Insert(ctx context.Context, s *models.Student) error
	DeleteByConnection(ctx context.Context, connectionID string) error
	ListNames(ctx context.Context) ([]string, error)
}

// Broadcaster delivers an event to all currently-connected clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

// Registry maintains the name <-> connection mapping. Names are unique across
// all persisted students, so a name stays taken until its connection closes.
type Registry struct {
	store  Store
	bcast  Broadcaster
	logger *zap.Logger
}

// NewRegistry creates a session registry.
func NewRegistry(store Store, bcast Broadcaster, logger *zap.Logger) *Registry {
	return &Registry{store: store, bcast: bcast, logger: logger}
}

// Register binds a name to a live connection and broadcasts the updated
// roster. Fails with ErrNameTaken when the name is already registered.
func (r *Registry) Register(ctx context.Context, name, connectionID string) (*models.Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	s := &models.Student{Name: name, ConnectionID: connectionID}
	if err := r.store.Insert(ctx, s); err != nil {
		return nil, err
	}
	r.logger.Info("student registered",
		zap.String("name", s.Name),
		zap.String("connection_id", connectionID),
	)
	r.broadcastRoster(ctx)
	return s, nil
}

// Unregister removes the student bound to a connection. Idempotent: an
// unbound connection is a no-op. Called when the connection closes.
func (r *Registry) Unregister(ctx context.Context, connectionID string) {
	if err := r.store.DeleteByConnection(ctx, connectionID); err != nil {
		r.logger.Error("unregister student", zap.String("connection_id", connectionID), zap.Error(err))
	}
}

// Names returns all registered names in registration order.
func (r *Registry) Names(ctx context.Context) ([]string, error) {
	return r.store.ListNames(ctx)
}

func (r *Registry) broadcastRoster(ctx context.Context) {
	names, err := r.store.ListNames(ctx)
	if err != nil {
		r.logger.Error("list student names", zap.Error(err))
		return
	}
	r.bcast.Broadcast(EventParticipantNames, names)
}
