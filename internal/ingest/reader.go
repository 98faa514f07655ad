package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// rawTable is a decoded upload before cleaning: one header row and records
// padded to the header width.
type rawTable struct {
	headers []string
	records [][]string
}

// DetectFormat maps a file name to a supported upload format.
func DetectFormat(fileName string) (string, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileName)
	}
}

func readTable(format string, body io.Reader) (rawTable, error) {
	switch format {
	case FormatCSV:
		return readCSV(body)
	case FormatXLSX:
		return readXLSX(body)
	default:
		return rawTable{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func readCSV(body io.Reader) (rawTable, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return rawTable{}, ErrEmptyUpload
	}
	if err != nil {
		return rawTable{}, fmt.Errorf("read csv header: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	table := rawTable{headers: headers}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rawTable{}, fmt.Errorf("read csv record: %w", err)
		}
		if len(record) > len(headers) {
			return rawTable{}, fmt.Errorf("csv line %d has %d fields, header has %d", line, len(record), len(headers))
		}
		table.records = append(table.records, pad(record, len(headers)))
	}
	return table, nil
}

// readXLSX reads the first worksheet. Cells come back with their display
// formatting applied.
func readXLSX(body io.Reader) (rawTable, error) {
	file, err := excelize.OpenReader(body)
	if err != nil {
		return rawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return rawTable{}, ErrEmptyUpload
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return rawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var table rawTable
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if table.headers == nil {
			table.headers = row
			continue
		}
		if len(row) > len(table.headers) {
			table.headers = pad(table.headers, len(row))
		}
		table.records = append(table.records, row)
	}
	if table.headers == nil {
		return rawTable{}, ErrEmptyUpload
	}
	for i, record := range table.records {
		table.records[i] = pad(record, len(table.headers))
	}
	return table, nil
}

func pad(record []string, width int) []string {
	if len(record) >= width {
		return record
	}
	out := make([]string, width)
	copy(out, record)
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
