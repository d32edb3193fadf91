package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"central-backend/internal/analytics"
)

const defaultAlertsTable = "alerts"

// AlertRepository is a Postgres implementation of the alert store.
type AlertRepository struct {
	db    *sql.DB
	table string
}

// NewAlertRepository constructs a repository with the default table name.
func NewAlertRepository(db *sql.DB, opts ...Option) *AlertRepository {
	repo := &AlertRepository{db: db, table: defaultAlertsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*AlertRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *AlertRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert persists an alert and fills its store-assigned id.
func (r *AlertRepository) Insert(ctx context.Context, alert *analytics.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	if alert.AlertType == "" || alert.Severity == "" {
		return errors.New("alert repo: empty type or severity")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	alert_type,
	severity,
	imei,
	bts_id,
	description,
	detected_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)
RETURNING id`, r.table)

	return r.db.QueryRowContext(
		ctx,
		query,
		alert.AlertType,
		alert.Severity,
		nullString(alert.IMEI),
		nullString(alert.BTSID),
		alert.Description,
		alert.DetectedAt,
	).Scan(&alert.ID)
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
