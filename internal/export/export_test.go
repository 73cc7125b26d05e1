package export

import (
	"bytes"
	"testing"

	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []domain.Observation {
	return []domain.Observation{
		{Region: "UK", Parameter: "Tmax", Year: 2023, Month: "Jan", Value: 7.5},
		{Region: "UK", Parameter: "Tmax", Year: 2023, Month: "Feb", Value: 10},
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleRows())
	require.NoError(t, err)
	assert.Equal(t, "Region,Parameter,Year,Month,Value\nUK,Tmax,2023,Jan,7.5\nUK,Tmax,2023,Feb,10", string(out))
}

func TestCSV_EmptyIsHeaderOnly(t *testing.T) {
	out, err := CSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "Region,Parameter,Year,Month,Value", string(out))
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		10:      "10",
		7.5:     "7.5",
		-2.25:   "-2.25",
		0.1:     "0.1",
		123.456: "123.456",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatValue(in))
	}
}

func TestWriteXLSX(t *testing.T) {
	stats := domain.Summarize(sampleRows())
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows(), stats, "°C"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{RawDataSheet, StatisticsSheet}, f.GetSheetList())

	raw, err := f.GetRows(RawDataSheet)
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, []string{"Region", "Parameter", "Year", "Month", "Value"}, raw[0])
	assert.Equal(t, []string{"UK", "Tmax", "2023", "Jan", "7.5"}, raw[1])

	st, err := f.GetRows(StatisticsSheet)
	require.NoError(t, err)
	require.Len(t, st, 4)
	assert.Equal(t, []string{"Average", "8.75", "°C"}, st[1])
	assert.Equal(t, []string{"Maximum", "10", "°C"}, st[2])
	assert.Equal(t, []string{"Minimum", "7.5", "°C"}, st[3])
}

func TestWriteXLSX_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil, nil, "mm"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	raw, err := f.GetRows(RawDataSheet)
	require.NoError(t, err)
	assert.Len(t, raw, 1)

	st, err := f.GetRows(StatisticsSheet)
	require.NoError(t, err)
	assert.Len(t, st, 1)
}
