package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"travel_gateway/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valStatus(code int) any {
	if code == 0 {
		return nil
	}
	return code
}

// Repo is the upstream fault audit log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) RecordFault(ctx context.Context, ev domain.FaultEvent) error {
	_, err := r.db.ExecContext(ctx, insertFaultSQL,
		ev.Service,
		ev.Op,
		string(ev.Kind),
		valStatus(ev.Status),
		valStr(ev.Detail),
	)
	if err != nil {
		return fmt.Errorf("insert upstream fault: %w", err)
	}
	return nil
}

// RecentFaults lists the newest faults of one service, newest first.
func (r *Repo) RecentFaults(ctx context.Context, service string, limit int) ([]domain.FaultEvent, error) {
	rows, err := r.db.QueryContext(ctx, recentFaultsSQL, service, limit)
	if err != nil {
		return nil, fmt.Errorf("query upstream faults: %w", err)
	}
	defer rows.Close()

	var out []domain.FaultEvent
	for rows.Next() {
		var ev domain.FaultEvent
		var kind string
		var status sql.NullInt64
		var detail sql.NullString
		if err := rows.Scan(&ev.Service, &ev.Op, &kind, &status, &detail); err != nil {
			return nil, err
		}
		ev.Kind = domain.FaultKind(kind)
		ev.Status = int(status.Int64)
		ev.Detail = detail.String
		out = append(out, ev)
	}
	return out, rows.Err()
}
