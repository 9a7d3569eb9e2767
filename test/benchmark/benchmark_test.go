package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/coop-records-api/internal/aggregate"
	"github.com/coop-records-api/internal/coerce"
	"github.com/coop-records-api/internal/ingest"
	"github.com/coop-records-api/internal/mocks"
	"github.com/coop-records-api/internal/models"
	"github.com/coop-records-api/internal/schema"
	"github.com/rs/zerolog"
)

// BenchmarkMoneyCoercion benchmarks the hot coercion path
func BenchmarkMoneyCoercion(b *testing.B) {
	inputs := []string{"$ 1.234.567", "1,234,567.00", "1234567", "", "n/a"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		coerce.Money(inputs[i%len(inputs)])
	}
}

// BenchmarkDateCoercion benchmarks date normalization
func BenchmarkDateCoercion(b *testing.B) {
	inputs := []string{"05/03/2024", "2024-03-05", "garbage"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		coerce.ISODate(inputs[i%len(inputs)])
	}
}

// BenchmarkIngestion benchmarks the full parse/reconcile/coerce/chunk
// pipeline over 1000 rows
func BenchmarkIngestion(b *testing.B) {
	records := mocks.NewMockRecordRepository()
	records.Columns["aportes"] = []string{
		"id", "No.", "Cedula", "Placa", "Fecha",
		"Vr. Esperado", "Vr. Recaudo", "% Cump", "created_at",
	}
	reconciler := schema.NewReconciler(records, nil, zerolog.Nop())
	pipeline := ingest.NewPipeline(reconciler, records, 50, ';', zerolog.Nop())

	var buf bytes.Buffer
	buf.WriteString("No.;Cedula;Placa;Fecha;Vr. Esperado;Vr. Recaudo;% Cump\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&buf, "%d;10452%02d;WXY%03d;05/03/2024;$ 1.234.567;1,000,000.00;85,5\n", i+1, i%100, i%1000)
	}
	data := buf.Bytes()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	for i := 0; i < b.N; i++ {
		if _, err := pipeline.Ingest(context.Background(), models.DomainDues, bytes.NewReader(data), nil); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkDuesSummary benchmarks aggregation over a capped result set
func BenchmarkDuesSummary(b *testing.B) {
	records := make([]models.Record, 100)
	for i := range records {
		records[i] = models.Record{
			"Vr. Esperado": float64(1000000),
			"Vr. Recaudo":  float64(i * 10000),
			"% Cump":       "85,5",
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		aggregate.Summarize(models.DomainDues, models.TierAdmin, records)
	}
}
