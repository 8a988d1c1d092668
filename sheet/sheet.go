package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ColumnTimestamp = "Timestamp"
	ColumnRecipient = "Certificate recipient's name"
	ColumnQuantity  = "Offset quantity kg"

	ColumnOrderID = "lune_order_id"
	ColumnPageURL = "lune_sustainability_page_url"
)

var (
	// ErrMalformedInput is returned when a file cannot be parsed as a
	// spreadsheet with the expected columns.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvariantViolation is returned when a row's contents are
	// internally inconsistent.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrResumeMismatch is returned when the output file's original columns
	// do not line up with the input file.
	ErrResumeMismatch = errors.New("resume mismatch")
)

// Row is a single spreadsheet record. OrderID and PageURL start out empty and
// are filled in as orders are placed. Values preserves the full original
// record, including columns this tool knows nothing about, for write-back.
type Row struct {
	Timestamp  string
	Recipient  string
	QuantityKg *decimal.Decimal

	OrderID string
	PageURL string

	Values map[string]string
}

// Table is an ordered set of rows plus the original column order. Columns
// excludes the two derived columns - those are always appended on write.
type Table struct {
	Columns []string
	Rows    []*Row

	derived bool
}

// Load reads and validates a spreadsheet file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	table, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	return table, nil
}

// Resume loads the row set for a run that may have prior progress.
//
// If outputPath does not exist the input file is used as-is. Otherwise the
// output file is authoritative but every original column is cross-checked,
// position by position, against the input file - any difference means the two
// files are not from the same run and the resume is refused.
func Resume(inputPath, outputPath string) (*Table, error) {
	input, err := Load(inputPath)
	if err != nil {
		return nil, err
	}

	if input.derived {
		return nil, fmt.Errorf("%w: input file %v already contains the '%v'/'%v' columns", ErrMalformedInput, inputPath, ColumnOrderID, ColumnPageURL)
	}

	if _, err := os.Stat(outputPath); errors.Is(err, os.ErrNotExist) {
		return input, nil
	}

	output, err := Load(outputPath)
	if err != nil {
		return nil, err
	}

	if len(output.Rows) != len(input.Rows) {
		return nil, fmt.Errorf("%w: %v has %v rows but %v has %v", ErrResumeMismatch, outputPath, len(output.Rows), inputPath, len(input.Rows))
	}

	if !slices.Equal(output.Columns, input.Columns) {
		return nil, fmt.Errorf("%w: %v columns %v do not match %v columns %v", ErrResumeMismatch, outputPath, output.Columns, inputPath, input.Columns)
	}

	for i, row := range output.Rows {
		for _, column := range input.Columns {
			if row.Values[column] != input.Rows[i].Values[column] {
				return nil, fmt.Errorf("%w: row %v column '%v': output has %q, input has %q", ErrResumeMismatch, i+1, column, row.Values[column], input.Rows[i].Values[column])
			}
		}
	}

	return output, nil
}

// Write serializes the table to path - original columns first, in their
// original order, then the order id and page URL columns. The whole file is
// rewritten on every call, via a temporary file and a rename.
func (t *Table) Write(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "offsets")
	if err != nil {
		return err
	}

	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := t.write(tmp); err != nil {
		return fmt.Errorf("error writing %v (%v)", path, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (t *Table) write(f io.Writer) error {
	w := csv.NewWriter(f)

	header := append(append([]string{}, t.Columns...), ColumnOrderID, ColumnPageURL)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range t.Rows {
		record := []string{}
		for _, column := range t.Columns {
			record = append(record, row.Values[column])
		}

		record = append(record, row.OrderID, row.PageURL)

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func parse(f io.Reader) (*Table, error) {
	r := csv.NewReader(f)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty spreadsheet", ErrMalformedInput)
	}

	// .. build index
	index := map[string]int{}
	for i, column := range records[0] {
		if _, ok := index[column]; ok {
			return nil, fmt.Errorf("%w: duplicate column name '%v'", ErrMalformedInput, column)
		}

		index[column] = i
	}

	for _, column := range []string{ColumnTimestamp, ColumnRecipient} {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%w: missing '%v' column", ErrMalformedInput, column)
		}
	}

	// ... original column order, derived columns excluded
	columns := []string{}
	derived := false
	for _, column := range records[0] {
		if column == ColumnOrderID || column == ColumnPageURL {
			derived = true
			continue
		}

		columns = append(columns, column)
	}

	// ... records
	rows := []*Row{}
	for i, record := range records[1:] {
		values := map[string]string{}
		for _, column := range columns {
			values[column] = record[index[column]]
		}

		row := Row{
			Timestamp: record[index[ColumnTimestamp]],
			Recipient: record[index[ColumnRecipient]],
			Values:    values,
		}

		if ix, ok := index[ColumnQuantity]; ok && strings.TrimSpace(record[ix]) != "" {
			quantity, err := decimal.NewFromString(strings.TrimSpace(record[ix]))
			if err != nil {
				return nil, fmt.Errorf("%w: row %v: invalid '%v' value %q", ErrMalformedInput, i+1, ColumnQuantity, record[ix])
			}

			row.QuantityKg = &quantity
		}

		if ix, ok := index[ColumnOrderID]; ok {
			row.OrderID = record[ix]
		}

		if ix, ok := index[ColumnPageURL]; ok {
			row.PageURL = record[ix]
		}

		if strings.TrimSpace(row.Timestamp) != row.Timestamp {
			return nil, fmt.Errorf("%w: row %v: leading or trailing space in timestamp %q", ErrInvariantViolation, i+1, row.Timestamp)
		}

		if strings.TrimSpace(row.Recipient) != row.Recipient {
			return nil, fmt.Errorf("%w: row %v: leading or trailing space in recipient name %q", ErrInvariantViolation, i+1, row.Recipient)
		}

		if row.OrderID != "" && row.PageURL == "" {
			return nil, fmt.Errorf("%w: row %v: order id %v present but no sustainability page URL", ErrInvariantViolation, i+1, row.OrderID)
		}

		rows = append(rows, &row)
	}

	return &Table{Columns: columns, Rows: rows, derived: derived}, nil
}
