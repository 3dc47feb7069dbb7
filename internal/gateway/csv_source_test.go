package gateway

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src RowSource) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSVSource_Next(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Row
	}{
		{
			name: "rows keyed by header",
			input: "name,governmentId,email,debtAmount,debtDueDate,debtId\n" +
				"João Silva,12345678901,joao@example.com,1000.50,2024-12-31,DEBT001\n" +
				"Maria Santos,98765432100,maria@example.com,\"2,500.75\",30/11/2024,DEBT002\n",
			expected: []Row{
				{Number: 1, Fields: map[string]string{
					"name": "João Silva", "governmentId": "12345678901", "email": "joao@example.com",
					"debtAmount": "1000.50", "debtDueDate": "2024-12-31", "debtId": "DEBT001",
				}},
				{Number: 2, Fields: map[string]string{
					"name": "Maria Santos", "governmentId": "98765432100", "email": "maria@example.com",
					"debtAmount": "2,500.75", "debtDueDate": "30/11/2024", "debtId": "DEBT002",
				}},
			},
		},
		{
			name:     "header only",
			input:    "name,governmentId,email,debtAmount,debtDueDate,debtId\n",
			expected: nil,
		},
		{
			name:  "short row leaves missing columns unset",
			input: "name,email,debtId\nAna,ana@example.com\n",
			expected: []Row{
				{Number: 1, Fields: map[string]string{"name": "Ana", "email": "ana@example.com"}},
			},
		},
		{
			name:  "byte order mark and padded header",
			input: "\xef\xbb\xbfname , debtId\nAna,D1\n",
			expected: []Row{
				{Number: 1, Fields: map[string]string{"name": "Ana", "debtId": "D1"}},
			},
		},
		{
			name:  "blank lines do not consume row numbers",
			input: "name,debtId\nAna,D1\n\nBia,D2\n",
			expected: []Row{
				{Number: 1, Fields: map[string]string{"name": "Ana", "debtId": "D1"}},
				{Number: 2, Fields: map[string]string{"name": "Bia", "debtId": "D2"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewCSVSource(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, readAll(t, src))
		})
	}
}

func TestCSVSource_Errors(t *testing.T) {
	t.Run("empty input has no header", func(t *testing.T) {
		_, err := NewCSVSource(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("file not found", func(t *testing.T) {
		_, err := OpenCSVFile("nonexistent_file.csv")
		assert.Error(t, err)
	})
}

func TestCSVSource_MalformedRowDoesNotStopReading(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("name,debtId\nAna,D1\nJo\"hn,D2\nBia,D3\n"))
	require.NoError(t, err)

	row, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "D1", row.Get(ColDebtID))

	_, err = src.Next()
	var malformed *MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 2, malformed.Row)
	assert.ErrorIs(t, err, csv.ErrBareQuote)

	row, err = src.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, row.Number)
	assert.Equal(t, "D3", row.Get(ColDebtID))

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCSVSource_UnterminatedQuoteIsMalformed(t *testing.T) {
	src, err := NewCSVSource(strings.NewReader("name,debtId\n\"Ana,D1\nBia\"x,D2\n"))
	require.NoError(t, err)

	_, err = src.Next()
	var malformed *MalformedRowError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, malformed.Row)
	assert.ErrorIs(t, err, csv.ErrQuote)
}

type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("connection reset")
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestCSVSource_ReadFailureIsNotMalformed(t *testing.T) {
	src, err := NewCSVSource(&failingReader{data: "name,debtId\nAna,D1\n"})
	require.NoError(t, err)

	_, err = src.Next()
	require.NoError(t, err)

	_, err = src.Next()
	require.Error(t, err)
	var malformed *MalformedRowError
	assert.False(t, errors.As(err, &malformed))
	assert.NotErrorIs(t, err, io.EOF)
}

func TestOpenCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debts.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,debtId\nAna,D1\n"), 0o644))

	src, err := OpenCSVFile(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"name", "debtId"}, src.Header())
	rows := readAll(t, src)
	require.Len(t, rows, 1)
	assert.Equal(t, "D1", rows[0].Get(ColDebtID))
	assert.Equal(t, "", rows[0].Get(ColEmail))
}
