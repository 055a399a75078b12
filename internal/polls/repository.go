package polls

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarooperla/Live-Polling-System/internal/models"
)

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new poll with its choices in one transaction.
// The partial unique index on is_active makes concurrent creates race on the
// insert itself; the loser gets ErrPollInProgress.
func (r *Repository) Insert(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertPoll = `INSERT INTO polls (id, question, time_limit_sec, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING created_at`
	err = tx.QueryRow(ctx, insertPoll, p.ID, p.Question, p.TimeLimit).Scan(&p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPollInProgress
		}
		return fmt.Errorf("insert poll: %w", err)
	}

	const insertChoice = `INSERT INTO poll_choices (poll_id, position, text, votes)
		VALUES ($1, $2, $3, 0)`
	for i, choice := range p.Choices {
		if _, err := tx.Exec(ctx, insertChoice, p.ID, i, choice.Text); err != nil {
			return fmt.Errorf("insert choice %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns a poll with its choices in position order.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const query = `SELECT id, question, time_limit_sec, is_active, created_at
		FROM polls WHERE id = $1`
	var p models.Poll
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Question, &p.TimeLimit, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select poll: %w", err)
	}
	if p.Choices, err = r.choices(ctx, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// FindActive returns the active poll, or nil when none exists.
func (r *Repository) FindActive(ctx context.Context) (*models.Poll, error) {
	const query = `SELECT id FROM polls WHERE is_active LIMIT 1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select active poll: %w", err)
	}
	return r.GetByID(ctx, id)
}

// IncrementVote atomically adds one vote to a choice of the active poll and
// returns the updated poll. The guarded UPDATE touches nothing when the poll
// has been ended concurrently.
func (r *Repository) IncrementVote(ctx context.Context, id uuid.UUID, choice int) (*models.Poll, error) {
	const query = `UPDATE poll_choices pc SET votes = pc.votes + 1
		FROM polls p
		WHERE p.id = pc.poll_id AND pc.poll_id = $1 AND pc.position = $2 AND p.is_active`
	tag, err := r.pool.Exec(ctx, query, id, choice)
	if err != nil {
		return nil, fmt.Errorf("increment vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPollNotActive
	}
	return r.GetByID(ctx, id)
}

// End deactivates the poll and returns it with final tallies.
// Returns ErrPollNotFound when the poll does not exist or is already ended.
func (r *Repository) End(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const query = `UPDATE polls SET is_active = FALSE WHERE id = $1 AND is_active`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("end poll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPollNotFound
	}
	return r.GetByID(ctx, id)
}

// ClearActive deactivates every active poll. Tolerates more than one in case
// the uniqueness guard was ever bypassed.
func (r *Repository) ClearActive(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `UPDATE polls SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("clear active polls: %w", err)
	}
	return nil
}

// ListAll returns every poll, newest first, with choices.
func (r *Repository) ListAll(ctx context.Context) ([]models.Poll, error) {
	const query = `SELECT id, question, time_limit_sec, is_active, created_at
		FROM polls ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select polls: %w", err)
	}
	defer rows.Close()

	var out []models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.TimeLimit, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate polls: %w", err)
	}
	for i := range out {
		if out[i].Choices, err = r.choices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteAll removes every poll; choices cascade.
func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM polls`); err != nil {
		return fmt.Errorf("delete polls: %w", err)
	}
	return nil
}

func (r *Repository) choices(ctx context.Context, pollID uuid.UUID) ([]models.Choice, error) {
	const query = `SELECT text, votes FROM poll_choices WHERE poll_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("select choices: %w", err)
	}
	defer rows.Close()

	var out []models.Choice
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.Text, &c.Votes); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
