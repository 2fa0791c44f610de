package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WindowParams selects one page of audit rows.
type WindowParams struct {
	FromAt     pgtype.Timestamptz
	ToAt       pgtype.Timestamptz
	Actor      pgtype.Text
	Entity     pgtype.Text
	Action     pgtype.Text
	OffsetRows int32
	LimitRows  int32
}

// AllParams selects every matching audit row.
type AllParams struct {
	FromAt pgtype.Timestamptz
	ToAt   pgtype.Timestamptz
	Actor  pgtype.Text
	Entity pgtype.Text
	Action pgtype.Text
}

// Row mirrors a stored audit_logs record.
type Row struct {
	At       pgtype.Timestamptz
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     []byte
}

// PGRepository reads audit_logs with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineWhere = `
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at < $2)
  AND ($3::text IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)`

const timelineWindowSQL = `
SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs` + timelineWhere + `
ORDER BY occurred_at DESC, id DESC
OFFSET $6 LIMIT $7`

const timelineAllSQL = `
SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs` + timelineWhere + `
ORDER BY occurred_at DESC, id DESC`

// TimelineWindow returns one page of rows, newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]Row, error) {
	rows, err := r.pool.Query(ctx, timelineWindowSQL,
		arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action, arg.OffsetRows, arg.LimitRows)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline window: %w", err)
	}
	return collectRows(rows)
}

// TimelineAll returns every matching row, newest first.
func (r *PGRepository) TimelineAll(ctx context.Context, arg AllParams) ([]Row, error) {
	rows, err := r.pool.Query(ctx, timelineAllSQL, arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline all: %w", err)
	}
	return collectRows(rows)
}

func collectRows(rows pgx.Rows) ([]Row, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Row, error) {
		var rec Row
		err := row.Scan(&rec.At, &rec.Actor, &rec.Action, &rec.Entity, &rec.EntityID, &rec.Meta)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan timeline: %w", err)
	}
	return out, nil
}

func decodeMeta(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return meta
}

var _ Repository = (*PGRepository)(nil)
