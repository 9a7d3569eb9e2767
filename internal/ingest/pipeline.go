// Package ingest turns uploaded delimited files into chunked inserts
// against a domain's backing table.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/coop-records-api/internal/coerce"
	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/repository"
	"github.com/coop-records-api/internal/schema"
	"github.com/rs/zerolog"
)

// Progress is emitted after every committed chunk.
type Progress struct {
	RowsSubmitted int
	TotalRows     int
	Percent       float64 // 0-100
}

// ChunkError reports a failed chunk insertion. Rows committed by prior
// chunks stay committed: ingestion is fail-fast, not atomic, and the
// operator must see the partial-success count.
type ChunkError struct {
	RowsCommitted int
	Err           error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk insert failed after %d rows committed: %v", e.RowsCommitted, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// integerColumns are the identifier-like columns whose values get
// stripped to bare digits, mirroring the cooperative's legacy loaders.
var integerColumns = map[string]bool{
	models.ColRowNum:  true,
	models.ColOwnerID: true,
	"CC":              true,
	"Subcentro":       true,
}

// Pipeline parses, reconciles, coerces, and chunk-inserts import files.
type Pipeline struct {
	reconciler *schema.Reconciler
	records    repository.RecordRepository
	chunkSize  int
	delimiter  rune
	log        zerolog.Logger
}

// NewPipeline creates an ingestion pipeline. delimiter is fixed per
// deployment; chunkSize rows go into each sequential insert.
func NewPipeline(reconciler *schema.Reconciler, records repository.RecordRepository, chunkSize int, delimiter rune, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		reconciler: reconciler,
		records:    records,
		chunkSize:  chunkSize,
		delimiter:  delimiter,
		log:        log.With().Str("component", "ingest").Logger(),
	}
}

// Ingest loads one delimited file into the domain's table. It reports
// progress after each chunk and returns the number of rows committed.
// The first chunk error aborts the remainder; the returned ChunkError
// carries how many rows made it in.
func (p *Pipeline) Ingest(ctx context.Context, d models.Domain, file io.Reader, report func(Progress)) (int, error) {
	columns, err := p.reconciler.ColumnsFor(ctx, d)
	if err != nil {
		return 0, err
	}

	records, err := p.parse(ctx, d, file, columns)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	insertCols := p.insertColumns(columns, records)
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(insertCols))
		for j, col := range insertCols {
			if v, ok := rec[col]; ok {
				row[j] = v
			}
		}
		rows[i] = row
	}

	total := len(rows)
	committed := 0
	for start := 0; start < total; start += p.chunkSize {
		select {
		case <-ctx.Done():
			return committed, &ChunkError{RowsCommitted: committed, Err: ctx.Err()}
		default:
		}

		end := start + p.chunkSize
		if end > total {
			end = total
		}

		if err := p.records.InsertChunk(ctx, d, insertCols, rows[start:end]); err != nil {
			p.log.Error().Err(err).
				Str("domain", string(d)).
				Int("rows_committed", committed).
				Msg("Chunk insert failed, aborting remaining chunks")
			return committed, &ChunkError{RowsCommitted: committed, Err: err}
		}
		committed = end

		if report != nil {
			report(Progress{
				RowsSubmitted: committed,
				TotalRows:     total,
				Percent:       float64(committed) / float64(total) * 100,
			})
		}
	}

	p.log.Info().Str("domain", string(d)).Int("rows", committed).Msg("Ingestion completed")
	return committed, nil
}

// parse reads the delimited file and reconciles every row against the
// domain schema.
func (p *Pipeline) parse(ctx context.Context, d models.Domain, file io.Reader, columns []string) ([]models.Record, error) {
	reader := csv.NewReader(file)
	reader.Comma = p.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	// Map each header position to its canonical column. Headers with no
	// canonical counterpart in this domain are dropped, not rejected;
	// log them so silently-misspelled columns leave a trace.
	canonicalByIndex := make([]string, len(header))
	for i, raw := range header {
		canonical, ok, err := p.reconciler.ReconcileKey(ctx, raw, d)
		if err != nil {
			return nil, err
		}
		if !ok || !known[canonical] {
			p.log.Debug().Str("header", raw).Str("domain", string(d)).Msg("Dropped unmatched import header")
			continue
		}
		canonicalByIndex[i] = canonical
	}

	var records []models.Record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+2, err)
		}

		record := make(models.Record, len(columns))
		empty := true
		for i, value := range fields {
			if i >= len(canonicalByIndex) || canonicalByIndex[i] == "" {
				continue
			}
			if strings.TrimSpace(value) != "" {
				empty = false
			}
			record[canonicalByIndex[i]] = p.coerceValue(canonicalByIndex[i], value)
		}
		if empty {
			continue
		}

		// Never insert an explicit empty identifier: absence means the
		// store assigns one.
		if v, ok := record[models.ColRowNum]; ok && v == nil {
			delete(record, models.ColRowNum)
		}

		records = append(records, record)
	}

	return records, nil
}

// coerceValue applies the per-kind coercion rules. Coercion never fails
// a row: unparseable money degrades to zero, unrecognized date shapes
// pass through unchanged.
func (p *Pipeline) coerceValue(canonical, raw string) any {
	trimmed := strings.TrimSpace(raw)
	switch {
	case integerColumns[canonical]:
		digits := coerce.Digits(trimmed)
		if digits == "" {
			return nil
		}
		return digits
	case coerce.IsPercentColumn(canonical):
		if trimmed == "" {
			return "0"
		}
		return strings.ReplaceAll(trimmed, ",", ".")
	case coerce.IsMoneyColumn(canonical):
		v := coerce.Money(trimmed)
		if v == 0 && trimmed != "" && trimmed != "0" {
			p.log.Debug().Str("column", canonical).Str("value", raw).Msg("Money value coerced to zero")
		}
		return v
	case coerce.IsDateColumn(canonical):
		return coerce.ISODate(trimmed)
	default:
		return trimmed
	}
}

// insertColumns selects the columns to insert: the domain's canonical
// order, restricted to columns at least one row actually carries.
func (p *Pipeline) insertColumns(columns []string, records []models.Record) []string {
	present := make(map[string]bool)
	for _, rec := range records {
		for col, v := range rec {
			if v != nil {
				present[col] = true
			}
		}
	}

	var cols []string
	for _, c := range columns {
		if present[c] {
			cols = append(cols, c)
		}
	}
	return cols
}
