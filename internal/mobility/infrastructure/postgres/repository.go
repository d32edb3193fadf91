package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mobility "central-backend/internal/mobility/domain"
)

const defaultCDRTable = "cdr_records"

const recordColumns = `id, imei, mcc, mnc, lac, bts_id, previous_bts_id,
timestamp_arrival, timestamp_departure, user_location_x, user_location_y,
distance, speed, duration, created_at`

// CDRRepository is a Postgres implementation of the record store.
type CDRRepository struct {
	db    *sql.DB
	table string
}

// NewCDRRepository constructs a repository with the default table name.
func NewCDRRepository(db *sql.DB, opts ...RepositoryOption) *CDRRepository {
	repo := &CDRRepository{db: db, table: defaultCDRTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*CDRRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *CDRRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// FindLatestByIMEI returns the most recent record for a device, or nil.
func (r *CDRRepository) FindLatestByIMEI(ctx context.Context, imei string) (*mobility.MobilityRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("cdr repo: nil db")
	}
	if imei == "" {
		return nil, errors.New("cdr repo: empty imei")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE imei = $1
ORDER BY timestamp_arrival DESC, id DESC
LIMIT 1`, recordColumns, r.table)

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, imei))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// Insert persists a record and fills its store-assigned id and
// creation timestamp.
func (r *CDRRepository) Insert(ctx context.Context, record *mobility.MobilityRecord) error {
	if r == nil || r.db == nil {
		return errors.New("cdr repo: nil db")
	}
	if record == nil {
		return errors.New("cdr repo: nil record")
	}
	if record.IMEI == "" || record.BTSID == "" || record.TimestampArrival.IsZero() {
		return errors.New("cdr repo: invalid record")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	imei,
	mcc,
	mnc,
	lac,
	bts_id,
	previous_bts_id,
	timestamp_arrival,
	user_location_x,
	user_location_y,
	distance,
	speed,
	duration
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING id, created_at`, r.table)

	err := r.db.QueryRowContext(
		ctx,
		query,
		record.IMEI,
		record.MCC,
		record.MNC,
		record.LAC,
		record.BTSID,
		nullString(record.PreviousBTSID),
		record.TimestampArrival,
		nullFloat(record.UserLocationX),
		nullFloat(record.UserLocationY),
		nullFloat(record.Distance),
		nullFloat(record.Speed),
		nullInt(record.DurationSeconds),
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return err
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return nil
}

// CloseDeparture stamps a record's departure. An already set departure
// is never moved earlier.
func (r *CDRRepository) CloseDeparture(ctx context.Context, id int64, departure time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("cdr repo: nil db")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET timestamp_departure = $2
WHERE id = $1
  AND (timestamp_departure IS NULL OR timestamp_departure <= $2)`, r.table)

	_, err := r.db.ExecContext(ctx, query, id, departure)
	return err
}

// CloseDanglingDepartures stamps the departure of every record that has
// a successor for the same device but no departure, using the earliest
// successor's arrival.
func (r *CDRRepository) CloseDanglingDepartures(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("cdr repo: nil db")
	}

	query := fmt.Sprintf(`
UPDATE %s AS prev
SET timestamp_departure = open.next_arrival
FROM (
	SELECT c.id, MIN(n.timestamp_arrival) AS next_arrival
	FROM %s c
	JOIN %s n ON n.imei = c.imei
	  AND (n.timestamp_arrival > c.timestamp_arrival
	       OR (n.timestamp_arrival = c.timestamp_arrival AND n.id > c.id))
	WHERE c.timestamp_departure IS NULL
	GROUP BY c.id
) AS open
WHERE prev.id = open.id`, r.table, r.table, r.table)

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
