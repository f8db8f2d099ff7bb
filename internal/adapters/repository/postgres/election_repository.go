package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

const electionColumns = `
	id, name, description, location, location_map_url, province, district,
	type, mode, is_cancelled, publish_date, open_register, close_register,
	open_voting, close_voting, start_result, end_result,
	keys_status, keys_destroy_scheduled_at, keys_destroy_scheduled_duration_ms,
	encryption_public_key, signing_public_key, online_result_status,
	version, created_at, updated_at`

// keysDestroyedSet marks the keys destroyed when the destroyed flag
// ($3, $4, $5 after id and version) is set, and leaves them alone otherwise.
const keysDestroyedSet = `
	keys_status = CASE WHEN $3::boolean THEN 'DESTROYED' ELSE keys_status END,
	keys_destroy_scheduled_at = COALESCE($4::timestamptz, keys_destroy_scheduled_at),
	keys_destroy_scheduled_duration_ms = COALESCE($5::bigint, keys_destroy_scheduled_duration_ms)`

type electionRepository struct {
	db *sql.DB
}

func NewElectionRepository(db *sql.DB) ports.ElectionRepository {
	return &electionRepository{
		db: db,
	}
}

func (r *electionRepository) CreateElection(ctx context.Context, e *domain.Election) error {
	query := `
		INSERT INTO elections (
			id, name, description, location, location_map_url, province, district,
			type, mode, open_register, close_register, open_voting, close_voting,
			keys_status, encryption_public_key, signing_public_key, online_result_status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING version
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.Name, e.Description, e.Location, e.LocationMapURL, e.Province, e.District,
		e.Type, e.Mode, e.OpenRegister, e.CloseRegister, e.OpenVoting, e.CloseVoting,
		e.KeysStatus, e.EncryptionPublicKey, e.SigningPublicKey, e.OnlineResultStatus,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.Version)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}
	return nil
}

func (r *electionRepository) GetElectionByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	e, err := scanElection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return e, nil
}

func (r *electionRepository) UpdateElection(ctx context.Context, e *domain.Election) error {
	query := `
		UPDATE elections
		SET name = $3, description = $4, location = $5, location_map_url = $6,
		    province = $7, district = $8, open_register = $9, close_register = $10,
		    open_voting = $11, close_voting = $12,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, e.ID, e.Version,
		e.Name, e.Description, e.Location, e.LocationMapURL, e.Province, e.District,
		e.OpenRegister, e.CloseRegister, e.OpenVoting, e.CloseVoting,
	).Scan(&e.Version, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.missOrConflict(ctx, r.db, e.ID)
		}
		return fmt.Errorf("failed to update election: %w", err)
	}
	return nil
}

func (r *electionRepository) DeleteElection(ctx context.Context, id uuid.UUID, version int64) error {
	return r.execVersioned(ctx, r.db, `DELETE FROM elections WHERE id = $1 AND version = $2`, id, version)
}

func (r *electionRepository) ListElections(ctx context.Context, filter domain.ElectionFilter, pagination domain.Pagination) ([]*domain.Election, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Cancelled != nil {
		add("is_cancelled = $%d", *filter.Cancelled)
	}
	if filter.Published != nil {
		if *filter.Published {
			where = append(where, "publish_date IS NOT NULL")
		} else {
			where = append(where, "publish_date IS NULL")
		}
	}
	if filter.Query != "" {
		add("name ILIKE $%d", "%"+filter.Query+"%")
	}

	query := `SELECT ` + electionColumns + ` FROM elections`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	pagination = pagination.Normalize()
	args = append(args, pagination.Limit, pagination.Offset())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) ListElectionsAwaitingCount(ctx context.Context, now time.Time) ([]*domain.Election, error) {
	query := `
		SELECT ` + electionColumns + `
		FROM elections
		WHERE type IN ('ONLINE', 'HYBRID')
		  AND is_cancelled = FALSE
		  AND publish_date IS NOT NULL
		  AND start_result IS NULL
		  AND close_voting <= $1
		  AND keys_status = 'CREATED'
		  AND online_result_status = 'UNSET'
		ORDER BY close_voting
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections awaiting count: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) UpdateElectionKeys(ctx context.Context, id uuid.UUID, version int64, update ports.KeysUpdate) error {
	query := `
		UPDATE elections
		SET keys_status = $3, encryption_public_key = $4, signing_public_key = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	return r.execVersioned(ctx, r.db, query, id, version,
		update.Status, update.EncryptionPublicKey, update.SigningPublicKey)
}

func (r *electionRepository) CancelElectionByID(ctx context.Context, id uuid.UUID, version int64, destroyed *ports.KeysDestroyInfo) error {
	query := `
		UPDATE elections
		SET is_cancelled = TRUE, ` + keysDestroyedSet + `,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	return r.execVersioned(ctx, r.db, query, id, version, destroyArgs(destroyed)...)
}

func (r *electionRepository) PublishElectionByID(ctx context.Context, id uuid.UUID, version int64, publishDate time.Time, destroyed *ports.KeysDestroyInfo) error {
	query := `
		UPDATE elections
		SET publish_date = $6, ` + keysDestroyedSet + `,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	args := append(destroyArgs(destroyed), publishDate)
	return r.execVersioned(ctx, r.db, query, id, version, args...)
}

func (r *electionRepository) MakeElectionSecureMode(ctx context.Context, id uuid.UUID, version int64, destroyed *ports.KeysDestroyInfo) error {
	query := `
		UPDATE elections
		SET mode = 'SECURE', ` + keysDestroyedSet + `,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	return r.execVersioned(ctx, r.db, query, id, version, destroyArgs(destroyed)...)
}

func (r *electionRepository) AnnounceElectionResult(ctx context.Context, id uuid.UUID, version int64, start, end time.Time, destroyed *ports.KeysDestroyInfo) error {
	query := `
		UPDATE elections
		SET start_result = $6, end_result = $7, ` + keysDestroyedSet + `,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`
	args := append(destroyArgs(destroyed), start, end)
	return r.execVersioned(ctx, r.db, query, id, version, args...)
}

func (r *electionRepository) UpdateElectionOnsiteResult(ctx context.Context, id uuid.UUID, version int64, votes []domain.CandidateVotes) error {
	return r.updateResult(ctx, id, version, "vote_onsite", votes, `
		UPDATE elections
		SET version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`)
}

func (r *electionRepository) UpdateElectionOnlineResult(ctx context.Context, id uuid.UUID, version int64, status domain.OnlineResultStatus, votes []domain.CandidateVotes) error {
	return r.updateResult(ctx, id, version, "vote_online", votes, `
		UPDATE elections
		SET online_result_status = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`, status)
}

// updateResult bumps the election row and rewrites one vote column of its
// candidates in a single transaction. A nil votes slice clears the column.
func (r *electionRepository) updateResult(ctx context.Context, id uuid.UUID, version int64, column string, votes []domain.CandidateVotes, electionQuery string, args ...any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.execVersioned(ctx, tx, electionQuery, id, version, args...); err != nil {
		return err
	}

	if votes == nil {
		query := fmt.Sprintf(`UPDATE election_candidates SET %s = NULL, updated_at = NOW() WHERE election_id = $1`, column)
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to clear candidate votes: %w", err)
		}
	} else {
		query := fmt.Sprintf(`UPDATE election_candidates SET %s = $3, updated_at = NOW() WHERE election_id = $1 AND id = $2`, column)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare candidate votes statement: %w", err)
		}
		defer stmt.Close()

		for _, v := range votes {
			res, err := stmt.ExecContext(ctx, id, v.CandidateID, v.Votes)
			if err != nil {
				return fmt.Errorf("failed to update candidate votes: %w", err)
			}
			n, err := rowsAffected(res)
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrCandidateNotFound
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execVersioned runs a write guarded by "WHERE id = $1 AND version = $2".
func (r *electionRepository) execVersioned(ctx context.Context, q execer, query string, id uuid.UUID, version int64, args ...any) error {
	res, err := q.ExecContext(ctx, query, append([]any{id, version}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to write election %s: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return r.missOrConflict(ctx, q, id)
	}
	return nil
}

func (r *electionRepository) missOrConflict(ctx context.Context, q execer, id uuid.UUID) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM elections WHERE id = $1`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrElectionNotFound
		}
		return fmt.Errorf("failed to check election: %w", err)
	}
	return domain.ErrElectionVersionConflict
}

func destroyArgs(destroyed *ports.KeysDestroyInfo) []any {
	if destroyed == nil {
		return []any{false, nil, nil}
	}
	return []any{true, destroyed.At, destroyed.Duration.Milliseconds()}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var (
		e                                      domain.Election
		publish, openReg, closeReg, start, end sql.NullTime
		destroyAt                              sql.NullTime
		destroyMs                              sql.NullInt64
	)
	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Location, &e.LocationMapURL, &e.Province, &e.District,
		&e.Type, &e.Mode, &e.IsCancelled, &publish, &openReg, &closeReg,
		&e.OpenVoting, &e.CloseVoting, &start, &end,
		&e.KeysStatus, &destroyAt, &destroyMs,
		&e.EncryptionPublicKey, &e.SigningPublicKey, &e.OnlineResultStatus,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.PublishDate = timePtr(publish)
	e.OpenRegister = timePtr(openReg)
	e.CloseRegister = timePtr(closeReg)
	e.StartResult = timePtr(start)
	e.EndResult = timePtr(end)
	e.KeysDestroyScheduledAt = timePtr(destroyAt)
	if destroyMs.Valid {
		d := time.Duration(destroyMs.Int64) * time.Millisecond
		e.KeysDestroyScheduledDuration = &d
	}
	e.OpenVoting = e.OpenVoting.UTC()
	e.CloseVoting = e.CloseVoting.UTC()
	return &e, nil
}

func scanElections(rows *sql.Rows) ([]*domain.Election, error) {
	var elections []*domain.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return elections, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
