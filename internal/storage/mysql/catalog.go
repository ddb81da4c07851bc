package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pawtrail/internal/domain"
)

func (r *Repo) GetOrg(ctx context.Context, id int64) (domain.Org, error) {
	var o domain.Org
	err := r.db.QueryRowContext(ctx, getOrgSQL, id).Scan(&o.ID, &o.Name, &o.Slug, &o.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Org{}, domain.ErrNotFound
	}
	return o, err
}

func (r *Repo) ListServices(ctx context.Context, orgID int64) ([]domain.Service, error) {
	rows, err := r.db.QueryContext(ctx, listServicesSQL, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) GetService(ctx context.Context, orgID, id int64) (domain.Service, error) {
	row := r.db.QueryRowContext(ctx, getServiceSQL, orgID, id)
	s, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Service{}, domain.ErrNotFound
	}
	return s, err
}

type scanner interface{ Scan(dest ...any) error }

func scanService(row scanner) (domain.Service, error) {
	var s domain.Service
	var desc sql.NullString
	if err := row.Scan(&s.ID, &s.OrgID, &s.Name, &desc, &s.DurationMin, &s.PriceCents, &s.Active); err != nil {
		return domain.Service{}, err
	}
	s.Description = strPtr(desc)
	return s, nil
}

func (r *Repo) ListLocations(ctx context.Context, orgID int64) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx, listLocationsSQL, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) GetLocation(ctx context.Context, orgID, id int64) (domain.Location, error) {
	row := r.db.QueryRowContext(ctx, getLocationSQL, orgID, id)
	l, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, domain.ErrNotFound
	}
	return l, err
}

func scanLocation(row scanner) (domain.Location, error) {
	var l domain.Location
	var addr sql.NullString
	if err := row.Scan(&l.ID, &l.OrgID, &l.Name, &addr, &l.Coords.Lat, &l.Coords.Lon); err != nil {
		return domain.Location{}, err
	}
	l.Address = strPtr(addr)
	return l, nil
}

func (r *Repo) GetPet(ctx context.Context, orgID, id int64) (domain.Pet, error) {
	var p domain.Pet
	var breed, size, notes sql.NullString
	err := r.db.QueryRowContext(ctx, getPetSQL, orgID, id).
		Scan(&p.ID, &p.OrgID, &p.OwnerID, &p.Name, &breed, &size, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Pet{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Pet{}, err
	}
	p.Breed = strPtr(breed)
	p.Size = strPtr(size)
	p.Notes = strPtr(notes)
	return p, nil
}

func (r *Repo) GetBranding(ctx context.Context, orgID int64) (domain.Branding, error) {
	var b domain.Branding
	var logo sql.NullString
	err := r.db.QueryRowContext(ctx, getBrandingSQL, orgID).
		Scan(&b.OrgID, &b.DisplayName, &b.PrimaryColor, &b.AccentColor, &logo)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Branding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Branding{}, err
	}
	b.LogoURL = strPtr(logo)
	return b, nil
}

func (r *Repo) ListWalkerHours(ctx context.Context, orgID int64, walkerID string) ([]domain.WalkerHours, error) {
	rows, err := r.db.QueryContext(ctx, listWalkerHoursSQL, orgID, walkerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalkerHours
	for rows.Next() {
		var h domain.WalkerHours
		var wd int
		if err := rows.Scan(&h.WalkerID, &h.OrgID, &wd, &h.StartMin, &h.EndMin); err != nil {
			return nil, err
		}
		h.Weekday = time.Weekday(wd)
		out = append(out, h)
	}
	return out, rows.Err()
}
