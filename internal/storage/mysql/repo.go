package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"poi_reconciler/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// RecordRun writes the run header and its drops in one transaction.
func (r *Repo) RecordRun(ctx context.Context, run domain.Run) (id int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, insertRunSQL,
		valStr(run.TripRef),
		run.City,
		run.Counts[domain.SourceAPI],
		run.Counts[domain.SourceVector],
		run.Counts[domain.SourceGraph],
		run.Accepted,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	if len(run.Drops) > 0 {
		values := make([]string, 0, len(run.Drops))
		args := make([]any, 0, len(run.Drops)*7) // 7 params per row
		for i, d := range run.Drops {
			values = append(values, "(?,?,?,?,?,?,?)")
			args = append(args,
				id,                    // run_id
				i,                     // seq
				string(d.Source),      // source
				d.Name,                // name
				string(d.Reason),      // reason
				valStr(d.MatchedName), // matched_name
				valF64(d.DistanceM),   // distance_m
			)
		}
		if _, err = tx.ExecContext(ctx, insertDropsPrefix+strings.Join(values, ","), args...); err != nil {
			return 0, fmt.Errorf("insert drops: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repo) GetRun(ctx context.Context, id int64) (domain.RunView, error) {
	var rv domain.RunView
	var tripRef sql.NullString
	var api, vector, graph int
	if err := r.db.QueryRowContext(ctx, getRunSQL, id).Scan(
		&rv.ID,
		&tripRef,
		&rv.City,
		&api, &vector, &graph,
		&rv.Accepted,
		&rv.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunView{}, domain.ErrNotFound
		}
		return domain.RunView{}, err
	}
	rv.TripRef = tripRef.String
	rv.Counts = map[domain.SourceTag]int{
		domain.SourceAPI:    api,
		domain.SourceVector: vector,
		domain.SourceGraph:  graph,
	}

	rows, err := r.db.QueryContext(ctx, listDropsSQL, id)
	if err != nil {
		return domain.RunView{}, err
	}
	defer rows.Close()

	rv.Drops = []domain.Drop{}
	for rows.Next() {
		var d domain.Drop
		var source, reason string
		var matched sql.NullString
		var dist sql.NullFloat64
		if err := rows.Scan(&source, &d.Name, &reason, &matched, &dist); err != nil {
			return domain.RunView{}, err
		}
		d.Source = domain.SourceTag(source)
		d.Reason = domain.DropReason(reason)
		d.MatchedName = matched.String
		if dist.Valid {
			m := dist.Float64
			d.DistanceM = &m
		}
		rv.Drops = append(rv.Drops, d)
	}
	if err := rows.Err(); err != nil {
		return domain.RunView{}, err
	}
	return rv, nil
}
