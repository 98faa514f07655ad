package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// Row is one archived upload row. PayloadJSON maps column names to the
// cleaned, typed cell values.
type Row struct {
	RowNumber   int64  `parquet:"row_number"`
	PayloadJSON string `parquet:"payload_json"`
}

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

// Encode writes rows as a parquet file. Row numbers start at 1.
func Encode(columns []string, rows [][]any) (EncodeResult, error) {
	if len(columns) == 0 {
		return EncodeResult{}, fmt.Errorf("columns are required")
	}
	if len(rows) == 0 {
		return EncodeResult{}, fmt.Errorf("rows are required")
	}

	out := make([]Row, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return EncodeResult{}, fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(columns))
		}
		payload := make(map[string]any, len(columns))
		for j, column := range columns {
			payload[column] = row[j]
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("encode row %d payload: %w", i+1, err)
		}
		out = append(out, Row{RowNumber: int64(i + 1), PayloadJSON: string(encoded)})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Row](buf)
	if _, err := writer.Write(out); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}
	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(out))}, nil
}

func Decode(data []byte) ([]Row, error) {
	reader := parquet.NewGenericReader[Row](bytes.NewReader(data))
	defer func() { _ = reader.Close() }()

	rows := make([]Row, reader.NumRows())
	if len(rows) == 0 {
		return nil, nil
	}
	count, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}
	return rows[:count], nil
}
