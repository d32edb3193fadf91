package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	registry "central-backend/internal/registry/domain"
)

const defaultBTSTable = "bts_registry"

const btsColumns = `id, bts_id, lac, location_x, location_y, status,
max_capacity, current_load, created_at, updated_at`

// BTSRepository is a Postgres implementation of the station store.
type BTSRepository struct {
	db    *sql.DB
	table string
}

// NewBTSRepository constructs a repository with the default table name.
func NewBTSRepository(db *sql.DB, opts ...Option) *BTSRepository {
	repo := &BTSRepository{db: db, table: defaultBTSTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*BTSRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *BTSRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// FindByBTSID loads one station or returns registry.ErrNotFound.
func (r *BTSRepository) FindByBTSID(ctx context.Context, btsID string) (*registry.BTS, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("bts repo: nil db")
	}
	if btsID == "" {
		return nil, errors.New("bts repo: empty bts id")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE bts_id = $1
LIMIT 1`, btsColumns, r.table)

	bts, err := scanBTS(r.db.QueryRowContext(ctx, query, btsID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, btsID)
		}
		return nil, err
	}
	return bts, nil
}

// Insert stores a new station. A unique index on bts_id surfaces
// duplicates as registry.ErrDuplicate.
func (r *BTSRepository) Insert(ctx context.Context, bts *registry.BTS) error {
	if r == nil || r.db == nil {
		return errors.New("bts repo: nil db")
	}
	if bts == nil {
		return errors.New("bts repo: nil bts")
	}
	if err := bts.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	bts_id,
	lac,
	location_x,
	location_y,
	status,
	max_capacity,
	current_load
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (bts_id) DO NOTHING
RETURNING id, created_at, updated_at`, r.table)

	err := r.db.QueryRowContext(
		ctx,
		query,
		bts.BTSID,
		bts.LAC,
		bts.LocationX,
		bts.LocationY,
		bts.Status,
		bts.MaxCapacity,
		bts.CurrentLoad,
	).Scan(&bts.ID, &bts.CreatedAt, &bts.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", registry.ErrDuplicate, bts.BTSID)
	}
	if err != nil {
		return err
	}
	bts.CreatedAt = bts.CreatedAt.UTC()
	bts.UpdatedAt = bts.UpdatedAt.UTC()
	return nil
}

// UpdateStatus sets the station's status and bumps updated_at.
func (r *BTSRepository) UpdateStatus(ctx context.Context, btsID, status string) error {
	if r == nil || r.db == nil {
		return errors.New("bts repo: nil db")
	}
	if btsID == "" || status == "" {
		return errors.New("bts repo: empty bts id or status")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, updated_at = NOW()
WHERE bts_id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, btsID, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, btsID)
	}
	return nil
}

// List returns all stations ordered by bts id.
func (r *BTSRepository) List(ctx context.Context) ([]registry.BTS, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("bts repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY bts_id`, btsColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]registry.BTS, 0)
	for rows.Next() {
		bts, err := scanBTS(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *bts)
	}
	return stations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBTS(row rowScanner) (*registry.BTS, error) {
	var bts registry.BTS
	if err := row.Scan(
		&bts.ID,
		&bts.BTSID,
		&bts.LAC,
		&bts.LocationX,
		&bts.LocationY,
		&bts.Status,
		&bts.MaxCapacity,
		&bts.CurrentLoad,
		&bts.CreatedAt,
		&bts.UpdatedAt,
	); err != nil {
		return nil, err
	}
	bts.CreatedAt = bts.CreatedAt.UTC()
	bts.UpdatedAt = bts.UpdatedAt.UTC()
	return &bts, nil
}
