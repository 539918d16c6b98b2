package csvutil

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lepinkainen/pharmstock/internal/loader"
)

// ReaderOptions configures CSV reading behavior.
type ReaderOptions struct {
	// SkipInvalid drops rows with the wrong field count instead of
	// returning an error.
	SkipInvalid bool
}

// ReadRecords reads a CSV file with a header row into loader records.
// Header names become column names; cell values are parsed as integers
// or floats where they look numeric, otherwise kept as strings. Empty
// cells become nil so they load as NULL.
func ReadRecords(filename string, opts ReaderOptions) ([]loader.Record, error) {
	csvFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = csvFile.Close() }()

	if fi, err := csvFile.Stat(); err != nil || fi.Size() == 0 {
		return nil, fmt.Errorf("CSV file is empty or cannot be read")
	}

	reader := csv.NewReader(csvFile)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	var records []loader.Record
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			if opts.SkipInvalid {
				slog.Warn("skipping malformed CSV row", "line", line, "error", err)
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if len(row) != len(header) {
			if opts.SkipInvalid {
				slog.Warn("skipping row with wrong field count",
					"line", line, "fields", len(row), "expected", len(header))
				continue
			}
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row))
		}

		record := make(loader.Record, len(header))
		for i, cell := range row {
			record[header[i]] = parseCell(cell)
		}
		records = append(records, record)
	}

	slog.Debug("CSV file read", "file", filename, "records", len(records))
	return records, nil
}

// parseCell converts a CSV cell to the most specific value type it
// parses as. Leading zeros are kept as text, since document numbers
// like "00123" must not collapse to 123.
func parseCell(cell string) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}

	if len(trimmed) > 1 && trimmed[0] == '0' && trimmed[1] != '.' {
		return trimmed
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}

	return trimmed
}
