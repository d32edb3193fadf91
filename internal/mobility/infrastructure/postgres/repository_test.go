package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	mobility "central-backend/internal/mobility/domain"
)

var recordFields = []string{
	"id", "imei", "mcc", "mnc", "lac", "bts_id", "previous_bts_id",
	"timestamp_arrival", "timestamp_departure", "user_location_x", "user_location_y",
	"distance", "speed", "duration", "created_at",
}

func testRecord(arrival time.Time) *mobility.MobilityRecord {
	x, y := 3.0, 4.0
	return &mobility.MobilityRecord{
		IMEI:             "356938035643809",
		MCC:              "260",
		MNC:              "01",
		LAC:              "10101",
		BTSID:            "BTS-1",
		TimestampArrival: arrival,
		UserLocationX:    &x,
		UserLocationY:    &y,
	}
}

func TestFindLatestByIMEI(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	arrival := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	created := arrival.Add(time.Second)
	rows := sqlmock.NewRows(recordFields).AddRow(
		int64(7), "356938035643809", "260", "01", "10101", "BTS-1", nil,
		arrival, nil, 3.0, 4.0, nil, nil, nil, created,
	)
	mock.ExpectQuery(`(?s)SELECT .+ FROM cdr_records.+WHERE imei = \$1.+ORDER BY timestamp_arrival DESC, id DESC.+LIMIT 1`).
		WithArgs("356938035643809").
		WillReturnRows(rows)

	repo := NewCDRRepository(db)
	record, err := repo.FindLatestByIMEI(context.Background(), "356938035643809")
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if record == nil {
		t.Fatal("expected record")
	}
	if record.ID != 7 || record.BTSID != "BTS-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.PreviousBTSID != nil || record.TimestampDeparture != nil {
		t.Fatal("expected nullable fields nil")
	}
	if record.UserLocationX == nil || *record.UserLocationX != 3.0 {
		t.Fatalf("expected location x 3, got %v", record.UserLocationX)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindLatestByIMEINoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM cdr_records.+WHERE imei = \$1`).
		WithArgs("000000000000000").
		WillReturnRows(sqlmock.NewRows(recordFields))

	repo := NewCDRRepository(db)
	record, err := repo.FindLatestByIMEI(context.Background(), "000000000000000")
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for unknown device, got %+v", record)
	}
}

func TestInsertFillsIDAndCreatedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	arrival := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	created := arrival.Add(time.Millisecond)
	mock.ExpectQuery(`(?s)INSERT INTO cdr_records.+RETURNING id, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	repo := NewCDRRepository(db)
	record := testRecord(arrival)
	if err := repo.Insert(context.Background(), record); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if record.ID != 42 {
		t.Fatalf("expected id 42, got %d", record.ID)
	}
	if !record.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, record.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCloseDeparture(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	departure := time.Date(2025, 1, 15, 12, 5, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)UPDATE cdr_records.+SET timestamp_departure = \$2.+WHERE id = \$1.+timestamp_departure IS NULL OR timestamp_departure <= \$2`).
		WithArgs(int64(7), departure).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCDRRepository(db)
	if err := repo.CloseDeparture(context.Background(), 7, departure); err != nil {
		t.Fatalf("close departure: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCloseDanglingDepartures(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE cdr_records AS prev.+SET timestamp_departure = open\.next_arrival`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewCDRRepository(db)
	closed, err := repo.CloseDanglingDepartures(context.Background())
	if err != nil {
		t.Fatalf("close dangling: %v", err)
	}
	if closed != 3 {
		t.Fatalf("expected 3 closed, got %d", closed)
	}
}

func TestWithTableOverridesName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM cdr_records_test.+WHERE imei = \$1`).
		WithArgs("356938035643809").
		WillReturnRows(sqlmock.NewRows(recordFields))

	repo := NewCDRRepository(db, WithTable("cdr_records_test"))
	if _, err := repo.FindLatestByIMEI(context.Background(), "356938035643809"); err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
