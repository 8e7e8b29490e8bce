package participant

import (
	"context"
	"errors"

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

const cols = `id, name, email, mobile, date_of_birth, gender,
	obesity_category, bp_category, diabetes_status, has_asthma, has_chronic_illnesses,
	role, created_at, updated_at`

func scan(row pgx.Row) (*Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Mobile, &p.DateOfBirth, &p.Gender,
		&p.ObesityCategory, &p.BPCategory, &p.DiabetesStatus, &p.HasAsthma, &p.HasChronicIllnesses,
		&p.Role, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Participant) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO participant (id, name, email, mobile, date_of_birth, gender,
			obesity_category, bp_category, diabetes_status, has_asthma, has_chronic_illnesses, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Name, p.Email, p.Mobile, p.DateOfBirth, p.Gender,
		p.ObesityCategory, p.BPCategory, p.DiabetesStatus, p.HasAsthma, p.HasChronicIllnesses, p.Role)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Participant, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM participant WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Participant, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM participant WHERE email = $1`, email))
}

func (r *repoPG) Update(ctx context.Context, p *Participant) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE participant SET name=$2, mobile=$3, role=$4, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Mobile, p.Role)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM participant WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Participant, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM participant`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM participant ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Participant
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}
