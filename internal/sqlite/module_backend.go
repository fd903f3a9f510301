package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"licensegate/internal/registry"
	"licensegate/pkg/contracts/domain"
)

// CurrentModules is the relational, current-generation module backend.
type CurrentModules struct {
	conn *sql.DB
}

// BySlug resolves a module by its canonical slug.
func (b *CurrentModules) BySlug(ctx context.Context, slug string) (*domain.Module, error) {
	const query = `SELECT slug, name, description, view_params, category, is_core, is_active
		FROM modules WHERE slug = ?`
	mod, err := scanCurrentModule(b.conn.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows || missingTable(err) {
		return nil, registry.ErrModuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query module by slug: %w", err)
	}
	return mod, nil
}

// ByViewParam resolves a module by one of its view parameters. View
// parameters are not necessarily unique across modules; the first match in
// slug order wins.
func (b *CurrentModules) ByViewParam(ctx context.Context, viewParam string) (*domain.Module, error) {
	mods, err := b.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range mods {
		if mods[i].AnswersTo(viewParam) {
			return &mods[i], nil
		}
	}
	return nil, registry.ErrModuleNotFound
}

// List returns all current-generation modules in slug order. A missing
// table reads as an empty set.
func (b *CurrentModules) List(ctx context.Context) ([]domain.Module, error) {
	const query = `SELECT slug, name, description, view_params, category, is_core, is_active
		FROM modules ORDER BY slug`
	rows, err := b.conn.QueryContext(ctx, query)
	if missingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var mods []domain.Module
	for rows.Next() {
		mod, err := scanCurrentModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		mods = append(mods, *mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return mods, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCurrentModule(row rowScanner) (*domain.Module, error) {
	var (
		mod        domain.Module
		viewParams string
		isCore     int
		isActive   int
	)
	if err := row.Scan(&mod.Slug, &mod.Name, &mod.Description, &viewParams, &mod.Category, &isCore, &isActive); err != nil {
		return nil, err
	}
	if viewParams != "" {
		if err := json.Unmarshal([]byte(viewParams), &mod.ViewParams); err != nil {
			return nil, fmt.Errorf("module %q: view_params: %w", mod.Slug, err)
		}
	}
	mod.Core = isCore != 0
	mod.Active = isActive != 0
	mod.Source = domain.ModuleSourceCurrent
	return &mod, nil
}

// PutModule inserts or replaces a current-generation module record.
func (d *DB) PutModule(ctx context.Context, mod *domain.Module) error {
	const query = `INSERT OR REPLACE INTO modules
		(slug, name, description, view_params, category, is_core, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	viewParams, err := json.Marshal(mod.ViewParams)
	if err != nil {
		return fmt.Errorf("encode view_params: %w", err)
	}
	_, err = d.conn.ExecContext(ctx, query,
		mod.Slug, mod.Name, mod.Description, string(viewParams), mod.Category,
		boolToInt(mod.Core), boolToInt(mod.Active),
	)
	if err != nil {
		return fmt.Errorf("put module: %w", err)
	}
	return nil
}

// LegacyModules is the taxonomy-style, legacy-generation module backend.
// Legacy records are sparse: a single view parameter and no structured
// core/active flags. They read as active, non-core.
type LegacyModules struct {
	conn *sql.DB
}

// BySlug resolves a legacy module by slug.
func (b *LegacyModules) BySlug(ctx context.Context, slug string) (*domain.Module, error) {
	const query = `SELECT slug, name, description, view_param, category
		FROM legacy_modules WHERE slug = ?`
	mod, err := scanLegacyModule(b.conn.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows || missingTable(err) {
		return nil, registry.ErrModuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query legacy module by slug: %w", err)
	}
	return mod, nil
}

// ByViewParam resolves a legacy module by its single view-parameter field.
func (b *LegacyModules) ByViewParam(ctx context.Context, viewParam string) (*domain.Module, error) {
	const query = `SELECT slug, name, description, view_param, category
		FROM legacy_modules WHERE view_param = ? ORDER BY slug LIMIT 1`
	mod, err := scanLegacyModule(b.conn.QueryRowContext(ctx, query, viewParam))
	if err == sql.ErrNoRows || missingTable(err) {
		return nil, registry.ErrModuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query legacy module by view param: %w", err)
	}
	return mod, nil
}

// List returns all legacy-generation modules in slug order.
func (b *LegacyModules) List(ctx context.Context) ([]domain.Module, error) {
	const query = `SELECT slug, name, description, view_param, category
		FROM legacy_modules ORDER BY slug`
	rows, err := b.conn.QueryContext(ctx, query)
	if missingTable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list legacy modules: %w", err)
	}
	defer rows.Close()

	var mods []domain.Module
	for rows.Next() {
		mod, err := scanLegacyModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan legacy module: %w", err)
		}
		mods = append(mods, *mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list legacy modules: %w", err)
	}
	return mods, nil
}

func scanLegacyModule(row rowScanner) (*domain.Module, error) {
	var (
		mod       domain.Module
		viewParam string
	)
	if err := row.Scan(&mod.Slug, &mod.Name, &mod.Description, &viewParam, &mod.Category); err != nil {
		return nil, err
	}
	if viewParam != "" {
		mod.ViewParams = []string{viewParam}
	}
	mod.Active = true
	mod.Source = domain.ModuleSourceLegacy
	return &mod, nil
}

// PutLegacyModule inserts or replaces a legacy-generation module record.
func (d *DB) PutLegacyModule(ctx context.Context, mod *domain.Module) error {
	const query = `INSERT OR REPLACE INTO legacy_modules
		(slug, name, description, view_param, category)
		VALUES (?, ?, ?, ?, ?)`
	viewParam := ""
	if len(mod.ViewParams) > 0 {
		viewParam = mod.ViewParams[0]
	}
	_, err := d.conn.ExecContext(ctx, query,
		mod.Slug, mod.Name, mod.Description, viewParam, mod.Category,
	)
	if err != nil {
		return fmt.Errorf("put legacy module: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ registry.Backend = (*CurrentModules)(nil)
var _ registry.Backend = (*LegacyModules)(nil)
