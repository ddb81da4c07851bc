package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pawtrail/internal/domain"
)

// CreateBooking locks overlapping rows for the walker and pet, then inserts.
// Returns ErrConflict when any non-cancelled booking touches [StartAt, EndAt).
func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []struct {
		sql string
		key any
	}{
		{lockWalkerOverlapsSQL, b.WalkerID},
		{lockPetOverlapsSQL, b.PetID},
	} {
		overlapping, err := anyRow(ctx, tx, q.sql, q.key, b.OrgID, b.EndAt, b.StartAt)
		if err != nil {
			if isDeadlock(err) {
				// the losing side of two same-window inserts
				return domain.ErrConflict
			}
			return err
		}
		if overlapping {
			return domain.ErrConflict
		}
	}

	if _, err := tx.ExecContext(ctx, insertBookingSQL,
		b.ID, b.OrgID, b.ServiceID, b.CustomerID, b.WalkerID, b.PetID, b.LocationID,
		valStr(b.SeriesID), b.StartAt, b.EndAt, string(b.Status), b.PriceCents,
	); err != nil {
		if isDup(err) || isDeadlock(err) {
			return domain.ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if isDeadlock(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

// anyRow reports whether the locking query matched at least one row.
func anyRow(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	found := rows.Next()
	if cerr := rows.Close(); cerr != nil {
		return false, cerr
	}
	return found, rows.Err()
}

func (r *Repo) GetBooking(ctx context.Context, orgID int64, id string) (domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, selectBookingCols+" WHERE org_id = ? AND id = ?", orgID, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func scanBooking(row scanner) (domain.Booking, error) {
	var b domain.Booking
	var seriesID sql.NullString
	if err := row.Scan(
		&b.ID, &b.OrgID, &b.ServiceID, &b.CustomerID, &b.WalkerID, &b.PetID, &b.LocationID,
		&seriesID, &b.StartAt, &b.EndAt, &b.Status, &b.PriceCents, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.SeriesID = strPtr(seriesID)
	return b, nil
}

// ListBookings filters and pages with a (start_at, id) keyset cursor; the
// query aligns with the (org_id, start_at, id) index.
func (r *Repo) ListBookings(ctx context.Context, q domain.BookingsQuery) (domain.BookingsPage, error) {
	var (
		where = []string{"org_id = ?"}
		args  = []any{q.OrgID}
	)
	if q.CustomerID != nil {
		where = append(where, "customer_id = ?")
		args = append(args, *q.CustomerID)
	}
	if q.WalkerID != nil {
		where = append(where, "walker_id = ?")
		args = append(args, *q.WalkerID)
	}
	if q.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*q.Status))
	}
	if q.From != nil {
		where = append(where, "start_at >= ?")
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, "start_at < ?")
		args = append(args, q.To.UTC())
	}
	if q.Cursor != nil {
		at, id, err := decodeCursor(*q.Cursor)
		if err != nil {
			return domain.BookingsPage{}, err
		}
		where = append(where, "(start_at > ? OR (start_at = ? AND id > ?))")
		args = append(args, at, at, id)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit+1)

	sqlStr := selectBookingCols + " WHERE " + strings.Join(where, " AND ") +
		" ORDER BY start_at, id LIMIT ?"
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return domain.BookingsPage{}, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return domain.BookingsPage{}, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return domain.BookingsPage{}, err
	}

	page := domain.BookingsPage{Items: out}
	if len(out) > limit {
		page.Items = out[:limit]
		last := page.Items[limit-1]
		c := encodeCursor(last.StartAt, last.ID)
		page.NextCursor = &c
	}
	return page, nil
}

func (r *Repo) ListWalkerBookingsBetween(ctx context.Context, orgID int64, walkerID string, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, walkerBookingsBetweenSQL, orgID, walkerID, to.UTC(), from.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, orgID int64, id string, from, to domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, updateBookingStatusSQL, string(to), orgID, id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// either the row is gone or the status moved underneath us
		if _, gerr := r.GetBooking(ctx, orgID, id); gerr != nil {
			return gerr
		}
		return domain.ErrConflict
	}
	return nil
}

func (r *Repo) CancelSeriesFrom(ctx context.Context, seriesID string, from time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, cancelSeriesFromSQL, seriesID, from.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeCursor(at time.Time, id string) string {
	return fmt.Sprintf("%d|%s", at.UTC().Unix(), id)
}

func decodeCursor(c string) (time.Time, string, error) {
	sec, id, ok := strings.Cut(c, "|")
	if !ok {
		return time.Time{}, "", fmt.Errorf("%w: malformed cursor", domain.ErrValidation)
	}
	n, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: malformed cursor", domain.ErrValidation)
	}
	return time.Unix(n, 0).UTC(), id, nil
}
