package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"licensegate/internal/license"
)

// settingRestrictedModules is the scalar setting holding the
// administrator-configured overage entitlement set, as a JSON slug array.
const settingRestrictedModules = "restricted_modules"

// RestrictedModules returns the configured overage module set. An absent
// setting returns an empty set, which tells the seat policy to apply its
// hardcoded default. A present but malformed value is a configuration
// fault and propagates as an error rather than silently locking the
// customer out of everything.
func (d *DB) RestrictedModules(ctx context.Context) ([]string, error) {
	var raw string
	err := d.conn.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", settingRestrictedModules,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query restricted modules setting: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var slugs []string
	if err := json.Unmarshal([]byte(raw), &slugs); err != nil {
		return nil, fmt.Errorf("malformed %s setting: %w", settingRestrictedModules, err)
	}
	return slugs, nil
}

// SetRestrictedModules stores the overage module set.
func (d *DB) SetRestrictedModules(ctx context.Context, slugs []string) error {
	raw, err := json.Marshal(slugs)
	if err != nil {
		return fmt.Errorf("encode restricted modules: %w", err)
	}
	_, err = d.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
		settingRestrictedModules, string(raw),
	)
	if err != nil {
		return fmt.Errorf("store restricted modules: %w", err)
	}
	return nil
}

var _ license.SettingsSource = (*DB)(nil)
