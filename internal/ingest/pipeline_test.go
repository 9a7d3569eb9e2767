package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/coop-records-api/internal/mocks"
	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/schema"
	"github.com/rs/zerolog"
)

func duesReconciler(records *mocks.MockRecordRepository) *schema.Reconciler {
	records.Columns["aportes"] = []string{
		"id", "No.", "Cedula", "Placa", "Fecha",
		"Vr. Esperado", "Vr. Recaudo", "% Cump", "created_at",
	}
	records.Columns["despachos"] = []string{
		"id", "No.", "Placa", "Fecha", "Ruta", "created_at",
	}
	return schema.NewReconciler(records, nil, zerolog.Nop())
}

func newTestPipeline(records *mocks.MockRecordRepository, chunkSize int) *Pipeline {
	return NewPipeline(duesReconciler(records), records, chunkSize, ';', zerolog.Nop())
}

func TestIngest_ReconcilesCoercesAndInserts(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	file := strings.Join([]string{
		"No.; cedula ;Placa;Fecha;Vr. Esperado;Vr. Recaudo;% Cump;Observaciones",
		"1;10.452.23;WXY123;05/03/2024;$ 1.234.567;1,234,567.00;85,5;ignorada",
		"2;1045224;ABC987;2024-03-06;500000;0;12.0;ignorada",
	}, "\n")

	committed, err := p.Ingest(context.Background(), models.DomainDues, strings.NewReader(file), nil)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if committed != 2 {
		t.Fatalf("expected 2 rows committed, got %d", committed)
	}
	if len(records.InsertedChunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(records.InsertedChunks))
	}

	chunk := records.InsertedChunks[0]
	// Unmatched header dropped, canonical order preserved
	want := []string{"No.", "Cedula", "Placa", "Fecha", "Vr. Esperado", "Vr. Recaudo", "% Cump"}
	if len(chunk.Cols) != len(want) {
		t.Fatalf("expected columns %v, got %v", want, chunk.Cols)
	}
	for i, c := range want {
		if chunk.Cols[i] != c {
			t.Fatalf("expected columns %v, got %v", want, chunk.Cols)
		}
	}

	row := chunk.Rows[0]
	if row[1] != "1045223" {
		t.Errorf("owner ID should be digit-stripped, got %v", row[1])
	}
	if row[3] != "2024-03-05" {
		t.Errorf("date should normalize to ISO, got %v", row[3])
	}
	if row[4] != float64(1234567) {
		t.Errorf("grouped money should parse to 1234567, got %v", row[4])
	}
	if row[5] != float64(1234567) {
		t.Errorf("comma-grouped money should parse to 1234567, got %v", row[5])
	}
	if row[6] != "85.5" {
		t.Errorf("percent comma should normalize to dot, got %v", row[6])
	}
}

func TestIngest_ThirdChunkFailureReportsRowsCommitted(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	boom := errors.New("deadlock detected")
	chunks := 0
	records.InsertFunc = func(models.Domain, []string, [][]any) error {
		chunks++
		if chunks == 3 {
			return boom
		}
		return nil
	}

	var sb strings.Builder
	sb.WriteString("Placa;Fecha\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "WXY%03d;2024-03-05\n", i)
	}

	committed, err := p.Ingest(context.Background(), models.DomainDispatch, strings.NewReader(sb.String()), nil)

	var ce *ChunkError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ChunkError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause should be preserved, got %v", ce.Err)
	}
	// Two chunks of 50 landed before the third failed
	if committed != 100 || ce.RowsCommitted != 100 {
		t.Errorf("expected 100 rows committed, got committed=%d err=%d", committed, ce.RowsCommitted)
	}
	if records.RowsInserted() != 100 {
		t.Errorf("expected 100 rows in the store, got %d", records.RowsInserted())
	}
}

func TestIngest_ProgressSequence(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	var sb strings.Builder
	sb.WriteString("Placa;Fecha\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "WXY%03d;2024-03-05\n", i)
	}

	var seen []Progress
	committed, err := p.Ingest(context.Background(), models.DomainDispatch, strings.NewReader(sb.String()), func(pr Progress) {
		seen = append(seen, pr)
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if committed != 120 {
		t.Fatalf("expected 120 rows, got %d", committed)
	}

	wantSubmitted := []int{50, 100, 120}
	if len(seen) != len(wantSubmitted) {
		t.Fatalf("expected %d progress reports, got %d", len(wantSubmitted), len(seen))
	}
	for i, want := range wantSubmitted {
		if seen[i].RowsSubmitted != want || seen[i].TotalRows != 120 {
			t.Errorf("report %d: got %+v", i, seen[i])
		}
	}
	if seen[2].Percent != 100 {
		t.Errorf("final report should be 100%%, got %v", seen[2].Percent)
	}
}

func TestIngest_EmptyRowNumberOmitsColumnValue(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	file := "No.;Placa;Fecha\n" +
		"7;WXY123;2024-03-05\n" +
		";ABC987;2024-03-06\n"

	if _, err := p.Ingest(context.Background(), models.DomainDispatch, strings.NewReader(file), nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	chunk := records.InsertedChunks[0]
	if chunk.Cols[0] != "No." {
		t.Fatalf("row number column should be inserted when any row carries one, cols=%v", chunk.Cols)
	}
	if chunk.Rows[0][0] != "7" {
		t.Errorf("expected explicit row number 7, got %v", chunk.Rows[0][0])
	}
	if chunk.Rows[1][0] != nil {
		t.Errorf("empty row number must insert NULL, got %v", chunk.Rows[1][0])
	}
}

func TestIngest_AllRowNumbersEmptyDropsColumn(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	file := "No.;Placa;Fecha\n" +
		";WXY123;2024-03-05\n" +
		";ABC987;2024-03-06\n"

	if _, err := p.Ingest(context.Background(), models.DomainDispatch, strings.NewReader(file), nil); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	for _, c := range records.InsertedChunks[0].Cols {
		if c == "No." {
			t.Errorf("row number column should be omitted when no row carries one, cols=%v", records.InsertedChunks[0].Cols)
		}
	}
}

func TestIngest_SkipsBlankLinesAndEmptyFile(t *testing.T) {
	records := mocks.NewMockRecordRepository()
	p := newTestPipeline(records, 50)

	committed, err := p.Ingest(context.Background(), models.DomainDispatch,
		strings.NewReader("Placa;Fecha\nWXY123;2024-03-05\n;\n"), nil)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if committed != 1 {
		t.Errorf("blank data line should be skipped, got %d rows", committed)
	}

	committed, err = p.Ingest(context.Background(), models.DomainDispatch, strings.NewReader(""), nil)
	if err != nil {
		t.Fatalf("Ingest of empty file failed: %v", err)
	}
	if committed != 0 {
		t.Errorf("empty file should commit nothing, got %d", committed)
	}
}
