package mysql

// -----------------------------------------------------------------------------
// USERS / IDENTITIES / MEMBERSHIPS
// -----------------------------------------------------------------------------

const insertUserSQL = `
INSERT INTO users (id, email, phone, password_hash, full_name)
VALUES (?, ?, ?, ?, ?)
`

const selectUserCols = `
SELECT id, email, phone, password_hash, full_name, created_at FROM users
`

const insertIdentitySQL = `
INSERT INTO identities (user_id, provider, subject)
VALUES (?, ?, ?)
`

const insertMembershipSQL = `
INSERT INTO memberships (user_id, org_id, role)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE role = role
`

// -----------------------------------------------------------------------------
// CATALOG
// -----------------------------------------------------------------------------

const getOrgSQL = `
SELECT id, name, slug, timezone FROM orgs WHERE id = ?
`

const listServicesSQL = `
SELECT id, org_id, name, description, duration_min, price_cents, active
FROM services
WHERE org_id = ? AND active = 1
ORDER BY name
`

const getServiceSQL = `
SELECT id, org_id, name, description, duration_min, price_cents, active
FROM services
WHERE org_id = ? AND id = ?
`

const listLocationsSQL = `
SELECT id, org_id, name, address, lat, lon
FROM locations
WHERE org_id = ?
ORDER BY id
`

const getLocationSQL = `
SELECT id, org_id, name, address, lat, lon
FROM locations
WHERE org_id = ? AND id = ?
`

const getPetSQL = `
SELECT id, org_id, owner_id, name, breed, size, notes
FROM pets
WHERE org_id = ? AND id = ?
`

const getBrandingSQL = `
SELECT org_id, display_name, primary_color, accent_color, logo_url
FROM org_branding
WHERE org_id = ?
`

const listWalkerHoursSQL = `
SELECT walker_id, org_id, weekday, start_min, end_min
FROM walker_hours
WHERE org_id = ? AND walker_id = ?
ORDER BY weekday, start_min
`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const insertBookingSQL = `
INSERT INTO bookings
  (id, org_id, service_id, customer_id, walker_id, pet_id, location_id,
   series_id, start_at, end_at, status, price_cents)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// One locking range scan per party. An OR over walker_id/pet_id defeats
// both single-column indexes and widens the FOR UPDATE lock to the whole
// org, so the walker and pet are checked separately against
// (walker_id, start_at) and (pet_id, start_at).
const lockWalkerOverlapsSQL = `
SELECT id FROM bookings
WHERE walker_id = ? AND org_id = ?
  AND status <> 'cancelled'
  AND start_at < ? AND end_at > ?
FOR UPDATE
`

const lockPetOverlapsSQL = `
SELECT id FROM bookings
WHERE pet_id = ? AND org_id = ?
  AND status <> 'cancelled'
  AND start_at < ? AND end_at > ?
FOR UPDATE
`

const selectBookingCols = `
SELECT id, org_id, service_id, customer_id, walker_id, pet_id, location_id,
       series_id, start_at, end_at, status, price_cents, created_at, updated_at
FROM bookings
`

const updateBookingStatusSQL = `
UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE org_id = ? AND id = ? AND status = ?
`

const cancelSeriesFromSQL = `
UPDATE bookings SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
WHERE series_id = ? AND start_at >= ? AND status IN ('pending', 'confirmed')
`

const walkerBookingsBetweenSQL = selectBookingCols + `
WHERE org_id = ? AND walker_id = ?
  AND status <> 'cancelled'
  AND start_at < ? AND end_at > ?
ORDER BY start_at, id
`

// -----------------------------------------------------------------------------
// RECURRING SERIES
// -----------------------------------------------------------------------------

const insertSeriesSQL = `
INSERT INTO recurring_series
  (id, org_id, customer_id, walker_id, service_id, pet_id, location_id,
   weekdays, start_time, timezone, interval_weeks, starts_on, ends_on,
   occurrences, status, expanded_through)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectSeriesCols = `
SELECT id, org_id, customer_id, walker_id, service_id, pet_id, location_id,
       weekdays, start_time, timezone, interval_weeks, starts_on, ends_on,
       occurrences, status, expanded_through, created_at
FROM recurring_series
`

const updateSeriesStatusSQL = `
UPDATE recurring_series SET status = ? WHERE org_id = ? AND id = ?
`

const listExpandableSQL = selectSeriesCols + `
WHERE status = 'active' AND expanded_through < ?
ORDER BY expanded_through
`

const setExpandedThroughSQL = `
UPDATE recurring_series SET expanded_through = ? WHERE id = ?
`

// -----------------------------------------------------------------------------
// PAYMENTS
// -----------------------------------------------------------------------------

const getPaymentConfigSQL = `
SELECT org_id, currency, capture_mode, platform_fee_bps, statement_descriptor, updated_at
FROM payment_config
WHERE org_id = ?
`

const upsertPaymentConfigSQL = `
INSERT INTO payment_config
  (org_id, currency, capture_mode, platform_fee_bps, statement_descriptor)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  currency             = VALUES(currency),
  capture_mode         = VALUES(capture_mode),
  platform_fee_bps     = VALUES(platform_fee_bps),
  statement_descriptor = VALUES(statement_descriptor),
  updated_at           = CURRENT_TIMESTAMP
`

const listPaymentProvidersSQL = `
SELECT id, org_id, kind, display_name, config, enabled, created_at
FROM payment_providers
WHERE org_id = ?
ORDER BY id
`

const insertPaymentProviderSQL = `
INSERT INTO payment_providers (org_id, kind, display_name, config, enabled)
VALUES (?, ?, ?, ?, ?)
`

const deletePaymentProviderSQL = `
DELETE FROM payment_providers WHERE org_id = ? AND id = ?
`
