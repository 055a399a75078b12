package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarooperla/Live-Polling-System/internal/models"
)

// Repository handles student persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a students repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a new student. The unique constraint on name makes
// concurrent registrations of the same name race on the insert; the loser
// gets ErrNameTaken.
func (r *Repository) Insert(ctx context.Context, s *models.Student) error {
	const query = `INSERT INTO students (name, connection_id)
		VALUES ($1, $2)
		RETURNING id, registered_at`
	err := r.pool.QueryRow(ctx, query, s.Name, s.ConnectionID).Scan(&s.ID, &s.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrNameTaken
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// DeleteByConnection removes the student bound to a connection, if any.
func (r *Repository) DeleteByConnection(ctx context.Context, connectionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM students WHERE connection_id = $1`, connectionID); err != nil {
		return fmt.Errorf("delete student by connection: %w", err)
	}
	return nil
}

// ListNames returns all registered names in registration order.
func (r *Repository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select student names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan student name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteAll removes every student record.
func (r *Repository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM students`); err != nil {
		return fmt.Errorf("delete students: %w", err)
	}
	return nil
}
