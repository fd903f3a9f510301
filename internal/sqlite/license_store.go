package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"licensegate/internal/license"
	"licensegate/pkg/contracts/domain"
)

// timeLayout is the stored timestamp format.
const timeLayout = time.RFC3339

// License looks up a license record by exact key. Missing keys map to
// license.ErrLicenseNotFound; everything else is a storage fault.
func (d *DB) License(ctx context.Context, key string) (*domain.License, error) {
	const query = `SELECT license_key, customer, status, expires_at, user_limit,
		allowed_modules, allowed_domains, created_at, updated_at
		FROM licenses WHERE license_key = ?`

	var (
		lic       domain.License
		expiresAt sql.NullString
		modules   string
		domains   string
		createdAt string
		updatedAt string
	)
	err := d.conn.QueryRowContext(ctx, query, key).Scan(
		&lic.Key,
		&lic.Customer,
		&lic.Status,
		&expiresAt,
		&lic.UserLimit,
		&modules,
		&domains,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, license.ErrLicenseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query license: %w", err)
	}

	if expiresAt.Valid && expiresAt.String != "" {
		t, err := time.Parse(timeLayout, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("license %q: parse expires_at: %w", key, err)
		}
		lic.ExpiresAt = &t
	}
	if lic.AllowedModules, err = decodeModuleSet(modules); err != nil {
		return nil, fmt.Errorf("license %q: allowed_modules: %w", key, err)
	}
	if err := json.Unmarshal([]byte(domains), &lic.AllowedDomains); err != nil {
		return nil, fmt.Errorf("license %q: allowed_domains: %w", key, err)
	}
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		lic.CreatedAt = t
	}
	if t, err := time.Parse(timeLayout, updatedAt); err == nil {
		lic.UpdatedAt = t
	}
	return &lic, nil
}

// decodeModuleSet accepts both storage shapes for the allowed-module set:
// the plain slug array and the older slug-to-granted map, where only
// entries with granted=true count.
func decodeModuleSet(raw string) ([]string, error) {
	var slugs []string
	if err := json.Unmarshal([]byte(raw), &slugs); err == nil {
		return slugs, nil
	}
	var granted map[string]bool
	if err := json.Unmarshal([]byte(raw), &granted); err != nil {
		return nil, err
	}
	for slug, ok := range granted {
		if ok {
			slugs = append(slugs, slug)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// PutLicense inserts or replaces a license record. Administrative tooling
// and the test fixtures go through this; the validation core never writes.
func (d *DB) PutLicense(ctx context.Context, lic *domain.License) error {
	const query = `INSERT OR REPLACE INTO licenses
		(license_key, customer, status, expires_at, user_limit,
		 allowed_modules, allowed_domains, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	modules, err := json.Marshal(lic.AllowedModules)
	if err != nil {
		return fmt.Errorf("encode allowed_modules: %w", err)
	}
	domains, err := json.Marshal(lic.AllowedDomains)
	if err != nil {
		return fmt.Errorf("encode allowed_domains: %w", err)
	}
	var expiresAt any
	if lic.ExpiresAt != nil {
		expiresAt = lic.ExpiresAt.Format(timeLayout)
	}
	now := time.Now().Format(timeLayout)
	createdAt := now
	if !lic.CreatedAt.IsZero() {
		createdAt = lic.CreatedAt.Format(timeLayout)
	}

	_, err = d.conn.ExecContext(ctx, query,
		lic.Key, lic.Customer, string(lic.Status), expiresAt, lic.UserLimit,
		string(modules), string(domains), createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("put license: %w", err)
	}
	return nil
}

// ActiveUsers counts the currently active users recorded for a customer.
func (d *DB) ActiveUsers(ctx context.Context, customer string) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM active_users WHERE customer = ?", customer,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}

// SetActiveUsers replaces the recorded active-user set for a customer with
// n synthetic entries. Seat tracking proper lives with the client
// deployments; this table only mirrors their last report.
func (d *DB) SetActiveUsers(ctx context.Context, customer string, n int) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM active_users WHERE customer = ?", customer); err != nil {
		return fmt.Errorf("clear active users: %w", err)
	}
	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO active_users (customer, user_id) VALUES (?, ?)",
			customer, fmt.Sprintf("user-%d", i+1),
		); err != nil {
			return fmt.Errorf("insert active user: %w", err)
		}
	}
	return tx.Commit()
}

var _ license.Store = (*DB)(nil)
var _ license.SeatSource = (*DB)(nil)
