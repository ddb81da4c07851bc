package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pawtrail/internal/domain"
)

func (r *Repo) CreateSeries(ctx context.Context, s domain.RecurringSeries) error {
	var endsOn any
	if s.EndsOn != nil {
		endsOn = s.EndsOn.UTC().Format("2006-01-02")
	}
	_, err := r.db.ExecContext(ctx, insertSeriesSQL,
		s.ID, s.OrgID, s.CustomerID, s.WalkerID, s.ServiceID, s.PetID, s.LocationID,
		int(s.Weekdays), s.StartTime, s.Timezone, s.IntervalWeeks,
		s.StartsOn.Format("2006-01-02"), endsOn, valInt(s.Occurrences),
		string(s.Status), s.ExpandedThrough.UTC(),
	)
	if isDup(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *Repo) GetSeries(ctx context.Context, orgID int64, id string) (domain.RecurringSeries, error) {
	row := r.db.QueryRowContext(ctx, selectSeriesCols+" WHERE org_id = ? AND id = ?", orgID, id)
	s, err := scanSeries(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RecurringSeries{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) ListSeries(ctx context.Context, orgID int64, customerID *string) ([]domain.RecurringSeries, error) {
	sqlStr := selectSeriesCols + " WHERE org_id = ?"
	args := []any{orgID}
	if customerID != nil {
		sqlStr += " AND customer_id = ?"
		args = append(args, *customerID)
	}
	sqlStr += " ORDER BY created_at DESC, id"

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecurringSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateSeriesStatus(ctx context.Context, orgID int64, id string, status domain.SeriesStatus) error {
	res, err := r.db.ExecContext(ctx, updateSeriesStatusSQL, string(status), orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := r.GetSeries(ctx, orgID, id); gerr != nil {
			return gerr
		}
	}
	return nil
}

func (r *Repo) ListExpandable(ctx context.Context, through time.Time) ([]domain.RecurringSeries, error) {
	rows, err := r.db.QueryContext(ctx, listExpandableSQL, through.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RecurringSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) SetExpandedThrough(ctx context.Context, id string, through time.Time) error {
	_, err := r.db.ExecContext(ctx, setExpandedThroughSQL, through.UTC(), id)
	return err
}

func scanSeries(row scanner) (domain.RecurringSeries, error) {
	var s domain.RecurringSeries
	var weekdays int
	var endsOn sql.NullTime
	var occurrences sql.NullInt64
	if err := row.Scan(
		&s.ID, &s.OrgID, &s.CustomerID, &s.WalkerID, &s.ServiceID, &s.PetID, &s.LocationID,
		&weekdays, &s.StartTime, &s.Timezone, &s.IntervalWeeks, &s.StartsOn, &endsOn,
		&occurrences, &s.Status, &s.ExpandedThrough, &s.CreatedAt,
	); err != nil {
		return domain.RecurringSeries{}, err
	}
	s.Weekdays = domain.Weekdays(weekdays)
	if endsOn.Valid {
		t := endsOn.Time
		s.EndsOn = &t
	}
	s.Occurrences = intPtr(occurrences)
	return s, nil
}
