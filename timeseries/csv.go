package timeseries

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CSVOptions holds options for CSV loading.
type CSVOptions struct {
	DateColumn  string // Column name for dates (optional)
	ValueColumn string // Column name for values (default: "y")
	IDColumn    string // Column name for series ID (optional, for filtering)
	IDFilter    string // Value to filter by ID column
	DateFormat  string // Date format (default: "2006-01-02")
	HasHeader   bool   // Whether CSV has header row (default: true)
	Delimiter   rune   // Field delimiter (default: ',')
	SkipRows    int    // Number of rows to skip at start
	// KeepMissing keeps NA cells as missing observations instead of
	// dropping their rows (default: true).
	KeepMissing bool
}

// DefaultCSVOptions returns default options for CSV loading.
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		ValueColumn: "y",
		DateFormat:  "2006-01-02",
		HasHeader:   true,
		Delimiter:   ',',
		KeepMissing: true,
	}
}

// LoadCSV loads a time series from a CSV file.
func LoadCSV(filename string, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader loads a time series from an io.Reader.
func LoadCSVFromReader(r io.Reader, opts *CSVOptions) (*Series, error) {
	if opts == nil {
		opts = DefaultCSVOptions()
	}

	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, err
		}
	}

	// without a header the layout is date, value
	cols := csvColumns{date: 0, value: 1, id: -1}
	if opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, err
		}
		cols = resolveColumns(header, opts)
	}

	var values []float64
	var missing []bool
	var timestamps []time.Time
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if opts.IDFilter != "" && cols.id >= 0 && cols.id < len(record) && field(record, cols.id) != opts.IDFilter {
			continue
		}
		if cols.value >= len(record) {
			continue
		}
		raw := field(record, cols.value)
		val, na := math.NaN(), isNA(raw)
		switch {
		case na && !opts.KeepMissing:
			continue
		case !na:
			if val, err = strconv.ParseFloat(raw, 64); err != nil {
				continue
			}
		}
		values = append(values, val)
		missing = append(missing, na)

		if cols.date >= 0 && cols.date < len(record) {
			if ts, ok := parseDate(field(record, cols.date), opts.DateFormat); ok {
				timestamps = append(timestamps, ts)
			}
		}
	}

	if !slices.Contains(missing, false) {
		return nil, errors.New("no valid data found in CSV")
	}
	series, err := NewWithMissing(values, missing)
	if err != nil {
		return nil, err
	}
	if len(timestamps) == len(values) {
		series.Timestamps = timestamps
	}
	return series, nil
}

type csvColumns struct {
	date, value, id int
}

// resolveColumns finds the value, date and id columns of a header. Columns
// named in opts win over the conventional names (y, value, ds, date, id);
// the value column falls back to the last one.
func resolveColumns(header []string, opts *CSVOptions) csvColumns {
	cols := csvColumns{date: -1, value: -1, id: -1}
	for i, h := range header {
		h = unquote(h)
		switch {
		case h == opts.ValueColumn || (opts.ValueColumn == "" && slices.Contains([]string{"y", "value", "Value"}, h)):
			cols.value = i
		case opts.DateColumn != "" && h == opts.DateColumn:
			cols.date = i
		case slices.Contains([]string{"ds", "date", "Date", "Month", "Year"}, h):
			if cols.date == -1 {
				cols.date = i
			}
		case opts.IDColumn != "" && h == opts.IDColumn:
			cols.id = i
		case opts.IDColumn == "" && slices.Contains([]string{"unique_id", "id", "ID"}, h):
			if cols.id == -1 {
				cols.id = i
			}
		}
	}
	if cols.value == -1 {
		cols.value = len(header) - 1
	}
	return cols
}

func field(record []string, i int) string {
	return unquote(record[i])
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\""))
}

func isNA(s string) bool {
	switch s {
	case "", "NA", "NaN", "nan", "null":
		return true
	}
	return false
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"2006-01",
	"2006",
}

func parseDate(s, preferred string) (time.Time, bool) {
	for _, layout := range append([]string{preferred}, dateFormats...) {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// LoadCSVColumn loads a specific column from a CSV file as a series.
func LoadCSVColumn(filename string, column string) (*Series, error) {
	opts := DefaultCSVOptions()
	opts.ValueColumn = column
	return LoadCSV(filename, opts)
}

// LoadCSVFiltered loads a filtered series from a CSV file.
func LoadCSVFiltered(filename string, idColumn, idValue, valueColumn string) (*Series, error) {
	opts := DefaultCSVOptions()
	opts.IDColumn = idColumn
	opts.IDFilter = idValue
	if valueColumn != "" {
		opts.ValueColumn = valueColumn
	}
	return LoadCSV(filename, opts)
}

// SaveCSV saves a time series to a CSV file. Missing values are written
// as NA.
func SaveCSV(series *Series, filename string, includeIndex bool) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, series, includeIndex)
}

// WriteCSV writes a time series in the format read by LoadCSVFromReader.
func WriteCSV(w io.Writer, series *Series, includeIndex bool) error {
	writer := csv.NewWriter(w)

	dated := len(series.Timestamps) == len(series.Values)
	header := []string{"y"}
	switch {
	case includeIndex && dated:
		header = []string{"ds", "y"}
	case includeIndex:
		header = []string{"index", "y"}
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, 2)
	for i, v := range series.Values {
		record = record[:0]
		if includeIndex {
			if dated {
				record = append(record, series.Timestamps[i].Format("2006-01-02"))
			} else {
				record = append(record, strconv.Itoa(i+1))
			}
		}
		if series.IsMissing(i) {
			record = append(record, "NA")
		} else {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
