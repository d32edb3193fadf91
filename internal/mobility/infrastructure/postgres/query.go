package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mobility "central-backend/internal/mobility/domain"
)

// CDRQuery serves read-side lookups over mobility records. Ordering is
// fixed: arrival descending, insertion order breaking ties.
type CDRQuery struct {
	db    *sql.DB
	table string
}

// NewCDRQuery constructs a query reader with the default table name.
func NewCDRQuery(db *sql.DB, opts ...QueryOption) *CDRQuery {
	q := &CDRQuery{db: db, table: defaultCDRTable}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueryOption configures the query reader.
type QueryOption func(*CDRQuery)

// WithQueryTable overrides the default table name.
func WithQueryTable(table string) QueryOption {
	return func(q *CDRQuery) {
		if table != "" {
			q.table = table
		}
	}
}

// ListRecent returns the most recent records across all devices.
func (q *CDRQuery) ListRecent(ctx context.Context, limit, offset int) ([]mobility.MobilityRecord, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
ORDER BY timestamp_arrival DESC, id DESC
LIMIT $1 OFFSET $2`, recordColumns, q.table)
	return q.list(ctx, query, limit, offset)
}

// ListByIMEI returns records for one device.
func (q *CDRQuery) ListByIMEI(ctx context.Context, imei string, limit, offset int) ([]mobility.MobilityRecord, error) {
	if imei == "" {
		return nil, errors.New("cdr query: empty imei")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE imei = $1
ORDER BY timestamp_arrival DESC, id DESC
LIMIT $2 OFFSET $3`, recordColumns, q.table)
	return q.list(ctx, query, imei, limit, offset)
}

// ListByBTS returns records observed at one station.
func (q *CDRQuery) ListByBTS(ctx context.Context, btsID string, limit, offset int) ([]mobility.MobilityRecord, error) {
	if btsID == "" {
		return nil, errors.New("cdr query: empty bts id")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE bts_id = $1
ORDER BY timestamp_arrival DESC, id DESC
LIMIT $2 OFFSET $3`, recordColumns, q.table)
	return q.list(ctx, query, btsID, limit, offset)
}

// ListByTimeRange returns records whose arrival falls in [start, end].
func (q *CDRQuery) ListByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]mobility.MobilityRecord, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE timestamp_arrival BETWEEN $1 AND $2
ORDER BY timestamp_arrival DESC, id DESC
LIMIT $3 OFFSET $4`, recordColumns, q.table)
	return q.list(ctx, query, start, end, limit, offset)
}

func (q *CDRQuery) list(ctx context.Context, query string, args ...any) ([]mobility.MobilityRecord, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("cdr query: nil db")
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]mobility.MobilityRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*mobility.MobilityRecord, error) {
	var (
		record        mobility.MobilityRecord
		previousBTSID sql.NullString
		departure     sql.NullTime
		locationX     sql.NullFloat64
		locationY     sql.NullFloat64
		distance      sql.NullFloat64
		speed         sql.NullFloat64
		duration      sql.NullInt64
	)
	if err := row.Scan(
		&record.ID,
		&record.IMEI,
		&record.MCC,
		&record.MNC,
		&record.LAC,
		&record.BTSID,
		&previousBTSID,
		&record.TimestampArrival,
		&departure,
		&locationX,
		&locationY,
		&distance,
		&speed,
		&duration,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	record.TimestampArrival = record.TimestampArrival.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	if previousBTSID.Valid {
		value := previousBTSID.String
		record.PreviousBTSID = &value
	}
	if departure.Valid {
		value := departure.Time.UTC()
		record.TimestampDeparture = &value
	}
	if locationX.Valid {
		value := locationX.Float64
		record.UserLocationX = &value
	}
	if locationY.Valid {
		value := locationY.Float64
		record.UserLocationY = &value
	}
	if distance.Valid {
		value := distance.Float64
		record.Distance = &value
	}
	if speed.Valid {
		value := speed.Float64
		record.Speed = &value
	}
	if duration.Valid {
		value := int(duration.Int64)
		record.DurationSeconds = &value
	}
	return &record, nil
}
