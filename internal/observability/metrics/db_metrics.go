package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "cdr_open_departures",
			Help: "Records with a successor but no departure timestamp",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*)
FROM cdr_records c
WHERE c.timestamp_departure IS NULL
  AND EXISTS (
	SELECT 1 FROM cdr_records n
	WHERE n.imei = c.imei
	  AND (n.timestamp_arrival > c.timestamp_arrival
	       OR (n.timestamp_arrival = c.timestamp_arrival AND n.id > c.id))
  )`)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "bts_registered",
			Help: "Registered base stations",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM bts_registry")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
