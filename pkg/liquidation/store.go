package liquidation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agroline/fieldops/pkg/hierarchy"
)

// Schema creates the liquidation tables. Column types stay portable across
// postgres and sqlite for tests.
const Schema = `
CREATE TABLE IF NOT EXISTS liquidation_entries (
	id TEXT PRIMARY KEY,
	distributor_id TEXT NOT NULL,
	distributor_name TEXT,
	retailer_id TEXT,
	territory TEXT,
	state TEXT,
	zone TEXT,
	submitted_by TEXT NOT NULL,
	submitted_by_role TEXT,
	opening_volume REAL NOT NULL DEFAULT 0,
	opening_value REAL NOT NULL DEFAULT 0,
	ytd_volume REAL NOT NULL DEFAULT 0,
	ytd_value REAL NOT NULL DEFAULT 0,
	liquidated_volume REAL NOT NULL DEFAULT 0,
	liquidated_value REAL NOT NULL DEFAULT 0,
	balance_volume REAL NOT NULL DEFAULT 0,
	balance_value REAL NOT NULL DEFAULT 0,
	as_of TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_liquidation_territory ON liquidation_entries(territory);
CREATE INDEX IF NOT EXISTS idx_liquidation_state ON liquidation_entries(state);
CREATE INDEX IF NOT EXISTS idx_liquidation_zone ON liquidation_entries(zone);

CREATE TABLE IF NOT EXISTS liquidation_rollups (
	scope_kind TEXT NOT NULL,
	scope_key TEXT NOT NULL,
	total_liquidated_volume REAL NOT NULL DEFAULT 0,
	total_liquidated_value REAL NOT NULL DEFAULT 0,
	total_balance_volume REAL NOT NULL DEFAULT 0,
	total_balance_value REAL NOT NULL DEFAULT 0,
	entry_count INTEGER NOT NULL DEFAULT 0,
	computed_at TIMESTAMP NOT NULL,
	PRIMARY KEY (scope_kind, scope_key)
);
`

// Store persists liquidation snapshots.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating liquidation schema: %w", err)
	}
	return nil
}

// Upsert replaces the snapshot with the same id, or inserts a new one.
func (s *Store) Upsert(ctx context.Context, e *Entry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("entry must have an id")
	}
	if e.AsOf.IsZero() {
		e.AsOf = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO liquidation_entries (
			id, distributor_id, distributor_name, retailer_id,
			territory, state, zone, submitted_by, submitted_by_role,
			opening_volume, opening_value, ytd_volume, ytd_value,
			liquidated_volume, liquidated_value, balance_volume, balance_value,
			as_of
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			distributor_id = EXCLUDED.distributor_id,
			distributor_name = EXCLUDED.distributor_name,
			retailer_id = EXCLUDED.retailer_id,
			territory = EXCLUDED.territory,
			state = EXCLUDED.state,
			zone = EXCLUDED.zone,
			submitted_by = EXCLUDED.submitted_by,
			submitted_by_role = EXCLUDED.submitted_by_role,
			opening_volume = EXCLUDED.opening_volume,
			opening_value = EXCLUDED.opening_value,
			ytd_volume = EXCLUDED.ytd_volume,
			ytd_value = EXCLUDED.ytd_value,
			liquidated_volume = EXCLUDED.liquidated_volume,
			liquidated_value = EXCLUDED.liquidated_value,
			balance_volume = EXCLUDED.balance_volume,
			balance_value = EXCLUDED.balance_value,
			as_of = EXCLUDED.as_of`,
		e.ID, e.DistributorID, e.DistributorName, e.RetailerID,
		e.Territory, e.State, e.Zone, e.SubmittedBy, string(e.SubmittedByRole),
		e.OpeningStock.Volume, e.OpeningStock.Value,
		e.YTDSales.Volume, e.YTDSales.Value,
		e.Liquidated.Volume, e.Liquidated.Value,
		e.BalanceStock.Volume, e.BalanceStock.Value,
		e.AsOf)
	if err != nil {
		return fmt.Errorf("upserting liquidation entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns all snapshots ordered by distributor then id. Visibility
// trimming happens in the service layer, not in SQL, so the same filter
// rules apply to cached and fresh reads alike.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, distributor_id, distributor_name, retailer_id,
			territory, state, zone, submitted_by, submitted_by_role,
			opening_volume, opening_value, ytd_volume, ytd_value,
			liquidated_volume, liquidated_value, balance_volume, balance_value,
			as_of
		FROM liquidation_entries
		ORDER BY distributor_id, id`)
	if err != nil {
		return nil, fmt.Errorf("listing liquidation entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var name, retailer, territory, state, zone, role sql.NullString
	err := rows.Scan(
		&e.ID, &e.DistributorID, &name, &retailer,
		&territory, &state, &zone, &e.SubmittedBy, &role,
		&e.OpeningStock.Volume, &e.OpeningStock.Value,
		&e.YTDSales.Volume, &e.YTDSales.Value,
		&e.Liquidated.Volume, &e.Liquidated.Value,
		&e.BalanceStock.Volume, &e.BalanceStock.Value,
		&e.AsOf)
	if err != nil {
		return Entry{}, fmt.Errorf("scanning liquidation entry: %w", err)
	}
	e.DistributorName = name.String
	e.RetailerID = retailer.String
	e.Territory = territory.String
	e.State = state.String
	e.Zone = zone.String
	e.SubmittedByRole = hierarchy.Role(role.String)
	return e, nil
}
