package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/vncsmyrnk/elections/internal/core/domain"
)

// UserRepository reads the user directory shared with the rest of the
// platform. Create is only used to seed users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FilterExistUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE id = ANY($1::uuid[]) AND deleted_at IS NULL`
	rows, err := r.db.QueryContext(ctx, query, uuidStrings(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to filter users: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

func (r *UserRepository) ListUserIDsFromPhoneNumbers(ctx context.Context, phoneNumbers []string) (map[string]uuid.UUID, error) {
	query := `SELECT phone_number, id FROM users WHERE phone_number = ANY($1) AND deleted_at IS NULL`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(phoneNumbers))
	if err != nil {
		return nil, fmt.Errorf("failed to list users by phone number: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]uuid.UUID, len(phoneNumbers))
	for rows.Next() {
		var (
			phone string
			id    uuid.UUID
		)
		if err := rows.Scan(&phone, &id); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		ids[phone] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (name, phone_number) VALUES ($1, $2) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Name, user.PhoneNumber).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}
