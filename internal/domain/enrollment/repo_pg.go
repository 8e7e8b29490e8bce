package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clintrack/clintrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const cols = `id, trial_id, participant_id, status, decided_at, created_at, updated_at`

func scan(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.TrialID, &req.ParticipantID, &req.Status,
		&req.DecidedAt, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	return &req, err
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO enrollment_request (id, trial_id, participant_id, status)
		VALUES ($1,$2,$3,$4)`,
		req.ID, req.TrialID, req.ParticipantID, req.Status)
	return mapUniqueViolation(err)
}

// mapUniqueViolation translates the partial unique indexes that backstop
// racing submissions into the workflow's typed errors. Two submits that
// both pass the workflow's read-side checks resolve here: the loser's
// insert trips one of the indexes.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "enrollment_request_trial_participant_active":
		return ErrDuplicateRequest
	case "enrollment_request_participant_active":
		return ErrAlreadyEnrolledElsewhere
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM enrollment_request WHERE id = $1`, id))
}

func (r *repoPG) FindActiveByTrialAndParticipant(ctx context.Context, trialID, participantID uuid.UUID) (*Request, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+cols+` FROM enrollment_request
		WHERE trial_id = $1 AND participant_id = $2 AND status IN ('pending','approved')
		ORDER BY created_at DESC LIMIT 1`, trialID, participantID))
}

func (r *repoPG) FindActiveByParticipant(ctx context.Context, participantID uuid.UUID) (*Request, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `
		SELECT `+cols+` FROM enrollment_request
		WHERE participant_id = $1 AND status IN ('pending','approved')
		ORDER BY created_at DESC LIMIT 1`, participantID))
}

func (r *repoPG) ListByTrial(ctx context.Context, trialID uuid.UUID, status string, limit, offset int) ([]*Request, int, error) {
	where := `WHERE trial_id = $1`
	args := []interface{}{trialID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM enrollment_request `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+cols+` FROM enrollment_request `+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListByParticipant(ctx context.Context, participantID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM enrollment_request WHERE participant_id = $1`, participantID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cols+` FROM enrollment_request
		WHERE participant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		participantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, decidedAt time.Time) (*Request, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `
		UPDATE enrollment_request SET status = $2, decided_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+cols, id, status, decidedAt))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM enrollment_request WHERE id = $1`, id)
	return err
}

func collect(rows pgx.Rows, total int) ([]*Request, int, error) {
	var items []*Request
	for rows.Next() {
		req, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, nil
}
