package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"licensegate/pkg/contracts/domain"
)

// Reconcile copies legacy module records into the current-generation table.
// Slugs already present in the current generation are left untouched, so
// the operation is idempotent and safe to re-run after a partial migration.
// The validation core works correctly whether this has run, partially run,
// or never run; reconciling just makes the current generation
// authoritative for every module.
func (d *DB) Reconcile(ctx context.Context) (*domain.MigrationReport, error) {
	legacy, err := d.LegacyModules().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list legacy modules: %w", err)
	}

	report := &domain.MigrationReport{}
	for i := range legacy {
		mod := legacy[i]

		var exists int
		err := d.conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM modules WHERE slug = ?", mod.Slug,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check module %q: %w", mod.Slug, err)
		}
		if exists > 0 {
			report.Skipped++
			continue
		}

		if err := d.PutModule(ctx, &mod); err != nil {
			return nil, fmt.Errorf("copy module %q: %w", mod.Slug, err)
		}
		report.Copied++
	}

	d.logger.InfoContext(ctx, "legacy module reconciliation completed",
		slog.Int("copied", report.Copied),
		slog.Int("skipped", report.Skipped),
		slog.Int("legacy_total", len(legacy)),
	)
	return report, nil
}
