package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"pawtrail/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

// isDup reports a MySQL duplicate-key error (1062).
func isDup(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isDeadlock reports a MySQL deadlock rollback (1213).
func isDeadlock(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == 1213
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- users ----

func (r *Repo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUserSQL,
		u.ID, valStr(u.Email), valStr(u.Phone), valStr(u.PasswordHash), valStr(u.FullName))
	if isDup(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserCols+" WHERE id = ?", id))
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserCols+" WHERE email = ?", strings.ToLower(email)))
}

func (r *Repo) GetUserByPhone(ctx context.Context, phone string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx, selectUserCols+" WHERE phone = ?", phone))
}

func (r *Repo) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var email, phone, hash, name sql.NullString
	if err := row.Scan(&u.ID, &email, &phone, &hash, &name, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	u.Email = strPtr(email)
	u.Phone = strPtr(phone)
	u.PasswordHash = strPtr(hash)
	u.FullName = strPtr(name)
	return u, nil
}

// ---- memberships ----

func (r *Repo) ListMemberships(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, org_id, role FROM memberships WHERE user_id = ? ORDER BY org_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.OrgID, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) GetMembership(ctx context.Context, orgID int64, userID string) (domain.Membership, error) {
	var m domain.Membership
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, org_id, role FROM memberships WHERE org_id = ? AND user_id = ?`,
		orgID, userID).Scan(&m.UserID, &m.OrgID, &m.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Membership{}, domain.ErrNotFound
	}
	return m, err
}

// EnsureMembership inserts the membership, keeping an existing role as-is.
func (r *Repo) EnsureMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, insertMembershipSQL, m.UserID, m.OrgID, string(m.Role))
	return err
}

// ---- identities ----

func (r *Repo) ListIdentities(ctx context.Context, userID string) ([]domain.Identity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, provider, subject, created_at FROM identities WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		var i domain.Identity
		if err := rows.Scan(&i.ID, &i.UserID, &i.Provider, &i.Subject, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (r *Repo) GetIdentity(ctx context.Context, provider domain.IdentityProvider, subject string) (domain.Identity, error) {
	var i domain.Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, subject, created_at FROM identities WHERE provider = ? AND subject = ?`,
		string(provider), subject).Scan(&i.ID, &i.UserID, &i.Provider, &i.Subject, &i.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Identity{}, domain.ErrNotFound
	}
	return i, err
}

func (r *Repo) LinkIdentity(ctx context.Context, i domain.Identity) (domain.Identity, error) {
	res, err := r.db.ExecContext(ctx, insertIdentitySQL, i.UserID, string(i.Provider), i.Subject)
	if err != nil {
		if isDup(err) {
			return domain.Identity{}, domain.ErrConflict
		}
		return domain.Identity{}, err
	}
	i.ID, _ = res.LastInsertId()
	return i, nil
}

func (r *Repo) UnlinkIdentity(ctx context.Context, userID string, identityID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM identities WHERE id = ? AND user_id = ?`, identityID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
