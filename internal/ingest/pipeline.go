package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/gateway"
)

// DefaultBatchSize is the number of debts committed per transaction.
const DefaultBatchSize = MaxBatchSize

// Pipeline streams rows through Normalize and a Committer.
type Pipeline struct {
	committer *Committer
	batchSize int
}

type Option func(*Pipeline)

// WithBatchSize overrides the batch size. Values outside 1..MaxBatchSize are clamped.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		switch {
		case n < 1:
			p.batchSize = 1
		case n > MaxBatchSize:
			p.batchSize = MaxBatchSize
		default:
			p.batchSize = n
		}
	}
}

func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		committer: NewCommitter(store),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run imports every row of src. Row problems end up in the report; the
// returned error is reserved for an unreadable source or a cancelled context,
// in which case the report still describes the rows handled so far.
func (p *Pipeline) Run(ctx context.Context, src gateway.RowSource) (*domain.ImportReport, error) {
	report := &domain.ImportReport{Errors: []domain.RowError{}}
	buf := make([]Entry, 0, p.batchSize)

	flush := func() error {
		res, err := p.committer.Commit(ctx, buf)
		report.Committed += res.Committed
		report.Errors = append(report.Errors, res.Errors...)
		buf = buf[:0]
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			report.SortErrors()
			return report, err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var malformed *gateway.MalformedRowError
		if errors.As(err, &malformed) {
			report.TotalRows++
			rowNum := malformed.Row
			if rowNum == 0 {
				rowNum = report.TotalRows
			}
			report.Errors = append(report.Errors,
				*domain.ParseError(rowNum, "malformed row: "+malformed.Err.Error()))
			continue
		}
		if err != nil {
			// Valid rows read before the failure are still committed.
			if flushErr := flush(); flushErr != nil {
				err = errors.Join(err, flushErr)
			}
			report.SortErrors()
			return report, fmt.Errorf("row source failed: %w", err)
		}

		report.TotalRows++
		if row.Number == 0 {
			row.Number = report.TotalRows
		}
		debt, rowErr := Normalize(row)
		if rowErr != nil {
			report.Errors = append(report.Errors, *rowErr)
			continue
		}

		buf = append(buf, Entry{Row: row.Number, Debt: debt})
		if len(buf) >= p.batchSize {
			if err := flush(); err != nil {
				report.SortErrors()
				return report, err
			}
		}
	}

	if err := flush(); err != nil {
		report.SortErrors()
		return report, err
	}
	report.SortErrors()
	return report, nil
}
