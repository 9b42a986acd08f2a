package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is tabular export content: ordered headers plus rows keyed by
// header name. Missing cells render empty, so sparse rows are fine.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// records flattens the dataset into csv-ready string slices, header row
// first.
func (d Dataset) records() [][]string {
	out := make([][]string, 0, len(d.Rows)+1)
	out = append(out, d.Headers)
	for _, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for i, header := range d.Headers {
			record[i] = row[header]
		}
		out = append(out, record)
	}
	return out
}

// CSVExporter renders a Dataset as RFC 4180 CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset and returns the raw bytes.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv dataset has no headers")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(data.records()); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}
