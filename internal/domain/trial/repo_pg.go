package trial

import (
	"context"
	"errors"
	"fmt"

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

const cols = `id, title, description, category, total_phases, phase_dates,
	participants_required, participants_enrolled, participant_ids, criteria,
	adverse_events_reported, adverse_events_high, adverse_events_medium, adverse_events_low,
	negative_impacts, positive_impacts, created_at, updated_at`

func scan(row pgx.Row) (*Trial, error) {
	var t Trial
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.TotalPhases, &t.PhaseDates,
		&t.ParticipantsRequired, &t.ParticipantsEnrolled, &t.ParticipantIDs, &t.Criteria,
		&t.AdverseEventsReported, &t.AdverseEventsHigh, &t.AdverseEventsMedium, &t.AdverseEventsLow,
		&t.NegativeImpacts, &t.PositiveImpacts, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Trial) error {
	t.ID = uuid.New()
	if t.ParticipantIDs == nil {
		t.ParticipantIDs = []uuid.UUID{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO trial (id, title, description, category, total_phases, phase_dates,
			participants_required, participants_enrolled, participant_ids, criteria,
			negative_impacts, positive_impacts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9,$10,$11)`,
		t.ID, t.Title, t.Description, t.Category, t.TotalPhases, t.PhaseDates,
		t.ParticipantsRequired, t.ParticipantIDs, t.Criteria,
		t.NegativeImpacts, t.PositiveImpacts)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Trial, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM trial WHERE id = $1`, id))
}

// Update changes descriptive fields and the schedule only; enrollment state
// and event counters have their own guarded paths.
func (r *repoPG) Update(ctx context.Context, t *Trial) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE trial SET title=$2, description=$3, category=$4, total_phases=$5,
			phase_dates=$6, participants_required=$7, criteria=$8, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Category, t.TotalPhases,
		t.PhaseDates, t.ParticipantsRequired, t.Criteria)
	return err
}

func (r *repoPG) UpdateEvents(ctx context.Context, t *Trial) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE trial SET adverse_events_reported=$2, adverse_events_high=$3,
			adverse_events_medium=$4, adverse_events_low=$5,
			negative_impacts=$6, positive_impacts=$7, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.AdverseEventsReported, t.AdverseEventsHigh,
		t.AdverseEventsMedium, t.AdverseEventsLow,
		t.NegativeImpacts, t.PositiveImpacts)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM trial WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Trial, int, error) {
	query := `SELECT ` + cols + ` FROM trial WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM trial WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := filters["title"]; ok {
		query += fmt.Sprintf(` AND title ILIKE '%%' || $%d || '%%'`, idx)
		countQuery += fmt.Sprintf(` AND title ILIKE '%%' || $%d || '%%'`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := filters["category"]; ok {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Trial
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, nil
}

func (r *repoPG) EnrollParticipant(ctx context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE trial
		SET participant_ids = array_append(participant_ids, $2),
			participants_enrolled = participants_enrolled + 1,
			updated_at = NOW()
		WHERE id = $1
			AND participants_enrolled = $3
			AND participants_enrolled < participants_required
			AND NOT (participant_ids @> ARRAY[$2]::uuid[])`,
		trialID, participantID, expectedEnrolled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *repoPG) WithdrawParticipant(ctx context.Context, trialID, participantID uuid.UUID, expectedEnrolled int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE trial
		SET participant_ids = array_remove(participant_ids, $2),
			participants_enrolled = participants_enrolled - 1,
			updated_at = NOW()
		WHERE id = $1
			AND participants_enrolled = $3
			AND participant_ids @> ARRAY[$2]::uuid[]`,
		trialID, participantID, expectedEnrolled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
