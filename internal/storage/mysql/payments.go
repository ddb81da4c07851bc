package mysql

import (
	"context"
	"database/sql"
	"errors"

	"pawtrail/internal/domain"
)

func (r *Repo) GetPaymentConfig(ctx context.Context, orgID int64) (domain.PaymentConfig, error) {
	var c domain.PaymentConfig
	var descriptor sql.NullString
	err := r.db.QueryRowContext(ctx, getPaymentConfigSQL, orgID).
		Scan(&c.OrgID, &c.Currency, &c.CaptureMode, &c.PlatformFeeBps, &descriptor, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaymentConfig{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PaymentConfig{}, err
	}
	c.StatementDescriptor = strPtr(descriptor)
	return c, nil
}

func (r *Repo) PutPaymentConfig(ctx context.Context, c domain.PaymentConfig) error {
	_, err := r.db.ExecContext(ctx, upsertPaymentConfigSQL,
		c.OrgID, c.Currency, string(c.CaptureMode), c.PlatformFeeBps, valStr(c.StatementDescriptor))
	return err
}

func (r *Repo) ListPaymentProviders(ctx context.Context, orgID int64) ([]domain.PaymentProvider, error) {
	rows, err := r.db.QueryContext(ctx, listPaymentProvidersSQL, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentProvider
	for rows.Next() {
		var p domain.PaymentProvider
		var cfg sql.RawBytes
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Kind, &p.DisplayName, &cfg, &p.Enabled, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(cfg) > 0 {
			p.ConfigJSON = append([]byte(nil), cfg...)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) CreatePaymentProvider(ctx context.Context, p domain.PaymentProvider) (int64, error) {
	cfg := p.ConfigJSON
	if len(cfg) == 0 {
		cfg = []byte(`{}`)
	}
	res, err := r.db.ExecContext(ctx, insertPaymentProviderSQL,
		p.OrgID, string(p.Kind), p.DisplayName, string(cfg), p.Enabled)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) DeletePaymentProvider(ctx context.Context, orgID, id int64) error {
	res, err := r.db.ExecContext(ctx, deletePaymentProviderSQL, orgID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
