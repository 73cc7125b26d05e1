// Package export renders a fetched result as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
)

const (
	CSVFilename    = "farmsetu_weather_data.csv"
	CSVContentType = "text/csv"
)

var columns = []string{"Region", "Parameter", "Year", "Month", "Value"}

// FormatValue renders v in its shortest decimal form.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSV returns the header plus one line per observation, separated by "\n"
// with no trailing newline.
func CSV(rows []domain.Observation) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV streams the same content as CSV to w.
func WriteCSV(w io.Writer, rows []domain.Observation) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range rows {
		record := []string{o.Region, string(o.Parameter), strconv.Itoa(o.Year), o.Month, FormatValue(o.Value)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
