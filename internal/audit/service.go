package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	// MaxPage bounds timeline paging so the row offset always fits in int32.
	MaxPage = 10000
)

// ErrPageOutOfRange reports a timeline page beyond MaxPage.
var ErrPageOutOfRange = errors.New("audit: page out of range")

// Repository is the read side of audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]Row, error)
	TimelineAll(ctx context.Context, arg AllParams) ([]Row, error)
}

// Service coordinates audit timeline reads.
type Service struct {
	repo Repository
}

// NewService builds an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of the audit timeline.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		return Result{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, page)
	}
	offset := (page - 1) * pageSize
	rows, err := s.repo.TimelineWindow(ctx, WindowParams{
		FromAt:     toPgTime(filters.From),
		ToAt:       toPgTime(filters.To),
		Actor:      optionalText(filters.Actor),
		Entity:     optionalText(filters.Entity),
		Action:     optionalText(filters.Action),
		OffsetRows: int32(offset),
		LimitRows:  int32(pageSize + 1),
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: mapRows(rows), Paging: paging}, nil
}

// Export returns every matching row without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	rows, err := s.repo.TimelineAll(ctx, AllParams{
		FromAt: toPgTime(filters.From),
		ToAt:   toPgTime(filters.To),
		Actor:  optionalText(filters.Actor),
		Entity: optionalText(filters.Entity),
		Action: optionalText(filters.Action),
	})
	if err != nil {
		return nil, err
	}
	return mapRows(rows), nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func mapRows(rows []Row) []TimelineRow {
	out := make([]TimelineRow, 0, len(rows))
	for _, row := range rows {
		var ts time.Time
		if row.At.Valid {
			ts = row.At.Time
		}
		out = append(out, TimelineRow{
			At:       ts,
			Actor:    row.Actor,
			Action:   row.Action,
			Entity:   row.Entity,
			EntityID: row.EntityID,
			Meta:     decodeMeta(row.Meta),
		})
	}
	return out
}
