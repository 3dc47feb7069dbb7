package gateway

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names expected in an uploaded debts file.
const (
	ColName         = "name"
	ColGovernmentID = "governmentId"
	ColEmail        = "email"
	ColDebtAmount   = "debtAmount"
	ColDebtDueDate  = "debtDueDate"
	ColDebtID       = "debtId"
)

var ErrEmptyFile = errors.New("file has no header row")

// Row is one data line keyed by header name. Number is 1-based and excludes the header.
type Row struct {
	Number int
	Fields map[string]string
}

// Get returns the value for a column, or "" if the row does not have it.
func (r Row) Get(col string) string {
	return r.Fields[col]
}

// MalformedRowError reports a data line the CSV reader could not split into
// fields. The source stays usable and the next call to Next reads the
// following line.
type MalformedRowError struct {
	Row int
	Err error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row %d: %v", e.Row, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// RowSource yields rows one at a time and returns io.EOF once exhausted.
// A *MalformedRowError affects only that row; any other error means the
// underlying input is unreadable.
type RowSource interface {
	Next() (Row, error)
}

// CSVSource streams rows from a CSV file with a header line.
type CSVSource struct {
	reader *csv.Reader
	header []string
	rowNum int
	closer io.Closer
}

// NewCSVSource reads the header from r and prepares to stream data rows.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	br := bufio.NewReader(r)
	// Tolerate a UTF-8 byte order mark written by spreadsheet exports.
	if bom, err := br.Peek(3); err == nil && string(bom) == "\xef\xbb\xbf" {
		br.Discard(3)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	return &CSVSource{reader: reader, header: cols}, nil
}

// OpenCSVFile opens path and wraps it in a CSVSource. Close releases the file.
func OpenCSVFile(path string) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	src, err := NewCSVSource(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	src.closer = file
	return src, nil
}

// Header returns the trimmed header columns.
func (s *CSVSource) Header() []string {
	return s.header
}

// Next returns the next data row. Blank lines are skipped by encoding/csv and
// do not consume a row number.
func (s *CSVSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) && isLineError(parseErr.Err) {
		s.rowNum++
		return Row{Number: s.rowNum}, &MalformedRowError{Row: s.rowNum, Err: parseErr.Err}
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to read row %d: %w", s.rowNum+1, err)
	}
	s.rowNum++

	fields := make(map[string]string, len(s.header))
	for i, col := range s.header {
		if i < len(record) {
			fields[col] = record[i]
		}
	}
	return Row{Number: s.rowNum, Fields: fields}, nil
}

func isLineError(err error) bool {
	return errors.Is(err, csv.ErrBareQuote) || errors.Is(err, csv.ErrQuote) || errors.Is(err, csv.ErrFieldCount)
}

func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
