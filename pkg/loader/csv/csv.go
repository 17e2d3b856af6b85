// Package csv decodes datasets stored as CSV, one generation per row.
package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/loader"
)

// generationColumns are header names recognised as the generation column
// when no column is requested explicitly.
var generationColumns = []string{"generation", "text", "response", "output"}

// DecodeDataset reads a CSV file with a header row. Every non-blank row
// contributes the cell of the generation column, in file order.
//
// column selects the generation column by header name (case-insensitive).
// When empty, the first header listed in generationColumns wins, and the
// first column is used if none matches. A requested column that does not
// exist is an error.
func DecodeDataset(data []byte, column string) (common.Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return common.Dataset{}, invalid("empty file")
	}
	if err != nil {
		return common.Dataset{}, invalid("read header: %v", err)
	}

	idx, err := columnIndex(header, column)
	if err != nil {
		return common.Dataset{}, err
	}

	generations := common.Corpus{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if isBlank(record) || idx >= len(record) {
			continue
		}
		generations = append(generations, record[idx])
	}

	return common.Dataset{Generations: generations}, nil
}

func columnIndex(header []string, column string) (int, error) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}

	if column != "" {
		want := strings.ToLower(strings.TrimSpace(column))
		for i, name := range names {
			if name == want {
				return i, nil
			}
		}
		return 0, invalid("column %q not found", column)
	}

	for _, candidate := range generationColumns {
		for i, name := range names {
			if name == candidate {
				return i, nil
			}
		}
	}
	return 0, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", loader.ErrInvalidDataset, fmt.Sprintf(format, args...))
}
