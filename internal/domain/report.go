package domain

import (
	"fmt"
	"sort"
)

// ErrorKind classifies why a row was rejected during an import.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindParse      ErrorKind = "parse"
	KindStorage    ErrorKind = "storage"
)

// RowError describes a rejected input row. Row is the 1-based data row number
// (the header line is not counted).
type RowError struct {
	Row     int       `json:"row"`
	DebtID  string    `json:"debt_id,omitempty"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RowError) Error() string {
	if e.DebtID != "" {
		return fmt.Sprintf("row %d (%s): %s", e.Row, e.DebtID, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

func ValidationError(row int, msg string) *RowError {
	return &RowError{Row: row, Kind: KindValidation, Message: msg}
}

func ParseError(row int, msg string) *RowError {
	return &RowError{Row: row, Kind: KindParse, Message: msg}
}

func StorageError(row int, debtID string, err error) *RowError {
	return &RowError{Row: row, DebtID: debtID, Kind: KindStorage, Message: err.Error()}
}

// ImportReport summarizes one ingestion run.
type ImportReport struct {
	TotalRows int        `json:"total_rows"`
	Committed int        `json:"committed"`
	Errors    []RowError `json:"errors"`
}

// SortErrors orders errors by row, keeping the insertion order of errors
// that share a row.
func (r *ImportReport) SortErrors() {
	sort.SliceStable(r.Errors, func(i, j int) bool {
		return r.Errors[i].Row < r.Errors[j].Row
	})
}

// CountByKind tallies errors per kind.
func (r *ImportReport) CountByKind() map[ErrorKind]int {
	out := make(map[ErrorKind]int, 3)
	for _, e := range r.Errors {
		out[e.Kind]++
	}
	return out
}
