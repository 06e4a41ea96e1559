package liquidation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agroline/fieldops/pkg/async"
	"github.com/agroline/fieldops/pkg/observability"
)

// Aggregator maintains the liquidation_rollups table: one row per territory,
// state, and zone with liquidated and balance totals. It is run from the
// scheduler binary, not the API path.
type Aggregator struct {
	db     *sql.DB
	logger *observability.Logger
}

func NewAggregator(db *sql.DB, logger *observability.Logger) *Aggregator {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Aggregator{db: db, logger: logger}
}

// scopeColumns maps each rollup kind to the grouping column. Rows with an
// empty scope value are excluded rather than rolled into a blank bucket.
var scopeColumns = map[string]string{
	"territory": "territory",
	"state":     "state",
	"zone":      "zone",
}

// RunOnce recomputes every rollup kind. Kinds are refreshed concurrently and
// independently so a failure in one does not block the others; the first
// error is returned after all have finished.
func (a *Aggregator) RunOnce(ctx context.Context) error {
	start := time.Now()
	kinds := make([]string, 0, len(scopeColumns))
	for kind := range scopeColumns {
		kinds = append(kinds, kind)
	}
	errs := async.Batch(ctx, kinds, len(kinds), func(ctx context.Context, kind string) error {
		if err := a.rollup(ctx, kind, scopeColumns[kind]); err != nil {
			a.logger.WithError(err).WithField("scope_kind", kind).Error("rollup failed")
			return err
		}
		return nil
	})
	a.logger.WithFields(map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("liquidation rollups refreshed")
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (a *Aggregator) rollup(ctx context.Context, kind, column string) error {
	// column comes from the fixed scopeColumns map, never from input.
	query := fmt.Sprintf(`
		INSERT INTO liquidation_rollups (
			scope_kind, scope_key,
			total_liquidated_volume, total_liquidated_value,
			total_balance_volume, total_balance_value,
			entry_count, computed_at
		)
		SELECT $1, %[1]s,
			SUM(liquidated_volume), SUM(liquidated_value),
			SUM(balance_volume), SUM(balance_value),
			COUNT(*), $2
		FROM liquidation_entries
		WHERE %[1]s IS NOT NULL AND %[1]s != ''
		GROUP BY %[1]s
		ON CONFLICT (scope_kind, scope_key) DO UPDATE SET
			total_liquidated_volume = EXCLUDED.total_liquidated_volume,
			total_liquidated_value = EXCLUDED.total_liquidated_value,
			total_balance_volume = EXCLUDED.total_balance_volume,
			total_balance_value = EXCLUDED.total_balance_value,
			entry_count = EXCLUDED.entry_count,
			computed_at = EXCLUDED.computed_at`, column)

	if _, err := a.db.ExecContext(ctx, query, kind, time.Now().UTC()); err != nil {
		return fmt.Errorf("refreshing %s rollups: %w", kind, err)
	}
	return nil
}

// Rollup is one precomputed scope total.
type Rollup struct {
	ScopeKind       string    `json:"scope_kind"`
	ScopeKey        string    `json:"scope_key"`
	TotalLiquidated Measure   `json:"total_liquidated"`
	TotalBalance    Measure   `json:"total_balance"`
	EntryCount      int       `json:"entry_count"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Rollups reads the precomputed totals for one scope kind.
func (a *Aggregator) Rollups(ctx context.Context, kind string) ([]Rollup, error) {
	if _, ok := scopeColumns[kind]; !ok {
		return nil, fmt.Errorf("unknown rollup scope %q", kind)
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT scope_kind, scope_key,
			total_liquidated_volume, total_liquidated_value,
			total_balance_volume, total_balance_value,
			entry_count, computed_at
		FROM liquidation_rollups
		WHERE scope_kind = $1
		ORDER BY scope_key`, kind)
	if err != nil {
		return nil, fmt.Errorf("reading %s rollups: %w", kind, err)
	}
	defer rows.Close()

	var out []Rollup
	for rows.Next() {
		var r Rollup
		if err := rows.Scan(&r.ScopeKind, &r.ScopeKey,
			&r.TotalLiquidated.Volume, &r.TotalLiquidated.Value,
			&r.TotalBalance.Volume, &r.TotalBalance.Value,
			&r.EntryCount, &r.ComputedAt); err != nil {
			return nil, fmt.Errorf("scanning rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
