package http

import (
	"encoding/csv"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	mobility "central-backend/internal/mobility/domain"
)

const exportLimit = 10000

// ExportHandler serves CDR exports under GET /api/v1/exports/.
type ExportHandler struct {
	reader RecordReader
	logger *log.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(reader RecordReader, logger *log.Logger) (*ExportHandler, error) {
	if reader == nil {
		return nil, errors.New("export handler: nil reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{reader: reader, logger: logger}, nil
}

// ServeHTTP dispatches by file extension: cdr.csv, cdr.xlsx, cdr.pdf.
// Optional start/end query parameters restrict the export to arrivals
// in that inclusive range.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/exports/")
	records, err := h.fetch(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if records == nil {
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}

	switch name {
	case "cdr.csv":
		h.writeCSV(w, records)
	case "cdr.xlsx":
		h.writeXLSX(w, records)
	case "cdr.pdf":
		h.writePDF(w, records)
	default:
		http.NotFound(w, r)
	}
}

// fetch returns the records to export. A nil slice with nil error means
// the query itself failed and was already logged.
func (h *ExportHandler) fetch(r *http.Request) ([]mobility.MobilityRecord, error) {
	query := r.URL.Query()
	hasStart := query.Get("start") != ""
	hasEnd := query.Get("end") != ""
	if hasStart != hasEnd {
		return nil, errors.New("start and end must be given together")
	}

	var (
		records []mobility.MobilityRecord
		err     error
	)
	if hasStart {
		var start, end time.Time
		start, err = parseTimeQuery(r, "start")
		if err != nil {
			return nil, err
		}
		end, err = parseTimeQuery(r, "end")
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, errors.New("end must not be before start")
		}
		records, err = h.reader.ListByTimeRange(r.Context(), start, end, exportLimit, 0)
	} else {
		records, err = h.reader.ListRecent(r.Context(), exportLimit, 0)
	}
	if err != nil {
		h.logger.Printf("cdr export: %v", err)
		return nil, nil
	}
	if records == nil {
		records = []mobility.MobilityRecord{}
	}
	return records, nil
}

func (h *ExportHandler) writeCSV(w http.ResponseWriter, records []mobility.MobilityRecord) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="cdr.csv"`)

	writer := csv.NewWriter(w)
	header := []string{
		"id", "imei", "mcc", "mnc", "lac", "bts_id", "previous_bts_id",
		"timestamp_arrival", "timestamp_departure", "distance", "duration", "speed",
	}
	if err := writer.Write(header); err != nil {
		h.logger.Printf("cdr export: write csv header: %v", err)
		return
	}
	for i := range records {
		record := &records[i]
		departure := ""
		if record.TimestampDeparture != nil {
			departure = formatLocalTime(*record.TimestampDeparture)
		}
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.IMEI,
			record.MCC,
			record.MNC,
			record.LAC,
			record.BTSID,
			stringOrEmpty(record.PreviousBTSID),
			formatLocalTime(record.TimestampArrival),
			departure,
			floatCell(record.Distance),
			intCell(record.DurationSeconds),
			floatCell(record.Speed),
		}
		if err := writer.Write(row); err != nil {
			h.logger.Printf("cdr export: write csv row: %v", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Printf("cdr export: flush csv: %v", err)
	}
}

func (h *ExportHandler) writeXLSX(w http.ResponseWriter, records []mobility.MobilityRecord) {
	data, err := BuildRecordsXLSX(records)
	if err != nil {
		h.logger.Printf("cdr export: build xlsx: %v", err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="cdr.xlsx"`)
	_, _ = w.Write(data)
}

func (h *ExportHandler) writePDF(w http.ResponseWriter, records []mobility.MobilityRecord) {
	data, err := BuildRecordsPDF(records)
	if err != nil {
		h.logger.Printf("cdr export: build pdf: %v", err)
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="cdr.pdf"`)
	_, _ = w.Write(data)
}
