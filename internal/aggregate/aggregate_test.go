package aggregate

import (
	"testing"

	"github.com/coop-records-api/internal/models"
)

func TestSummarize_DuesAverageAndBands(t *testing.T) {
	records := []models.Record{
		{"Vr. Esperado": float64(100000), "Vr. Recaudo": float64(90000), "% Cump": "90"},
		{"Vr. Esperado": float64(100000), "Vr. Recaudo": float64(60000), "% Cump": "60"},
		{"Vr. Esperado": float64(100000), "Vr. Recaudo": float64(30000), "% Cump": "30"},
	}

	got := Summarize(models.DomainDues, models.TierAdmin, records)
	if got == nil || got.Dues == nil {
		t.Fatal("expected a dues summary")
	}
	if got.Dues.AvgCompletion != 60 {
		t.Errorf("expected average 60, got %v", got.Dues.AvgCompletion)
	}
	want := []models.Band{models.BandHigh, models.BandMid, models.BandLow}
	for i, b := range want {
		if got.Dues.Bands[i] != b {
			t.Errorf("record %d: expected band %s, got %s", i, b, got.Dues.Bands[i])
		}
	}
	if got.Dues.TotalCollected != 180000 || got.Dues.TotalBilled != 300000 {
		t.Errorf("unexpected totals: collected=%v billed=%v", got.Dues.TotalCollected, got.Dues.TotalBilled)
	}
}

func TestSummarize_DuesCommaDecimalPercent(t *testing.T) {
	records := []models.Record{
		{"% Cump": "85,5"},
		{"% Cump": "14,5"},
	}
	got := Summarize(models.DomainDues, models.TierAdmin, records)
	if got.Dues.AvgCompletion != 50 {
		t.Errorf("comma decimals should parse, got average %v", got.Dues.AvgCompletion)
	}
}

func TestSummarize_TicketingConfirmedVsProjected(t *testing.T) {
	records := []models.Record{
		{"Vr. Total": float64(120000), "Estado Envio": "Enviada"},
		{"Vr. Total": float64(80000), "Estado Envio": "ENVIADA "},
		{"Vr. Total": float64(50000), "Estado Envio": "Pendiente"},
		{"Vr. Total": "30000", "Estado Envio": ""},
	}

	got := Summarize(models.DomainTicketing, models.TierSuperAdmin, records)
	if got == nil || got.Ticketing == nil {
		t.Fatal("expected a ticketing summary")
	}
	if got.Ticketing.ConfirmedRevenue != 200000 {
		t.Errorf("expected confirmed 200000, got %v", got.Ticketing.ConfirmedRevenue)
	}
	if got.Ticketing.ProjectedRevenue != 280000 {
		t.Errorf("expected projected 280000, got %v", got.Ticketing.ProjectedRevenue)
	}
}

func TestSummarize_NoSummaryDomains(t *testing.T) {
	records := []models.Record{{"Placa": "WXY123"}}
	if got := Summarize(models.DomainDispatch, models.TierAdmin, records); got != nil {
		t.Errorf("dispatch defines no summary, got %+v", got)
	}
	if got := Summarize(models.DomainReceivables, models.TierAdmin, records); got != nil {
		t.Errorf("receivables defines no summary, got %+v", got)
	}
}

func TestSummarize_OwnerNeedsTwoRecords(t *testing.T) {
	one := []models.Record{{"% Cump": "90"}}
	if got := Summarize(models.DomainDues, models.TierOwner, one); got != nil {
		t.Errorf("owner with one record gets no summary, got %+v", got)
	}

	two := []models.Record{{"% Cump": "90"}, {"% Cump": "30"}}
	if got := Summarize(models.DomainDues, models.TierOwner, two); got == nil {
		t.Error("owner with two records gets a summary")
	}

	// Admins are summarized regardless of size
	if got := Summarize(models.DomainDues, models.TierAdmin, one); got == nil {
		t.Error("admin with one record still gets a summary")
	}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want models.Band
	}{
		{100, models.BandHigh},
		{80, models.BandHigh},
		{79.9, models.BandMid},
		{50, models.BandMid},
		{49.9, models.BandLow},
		{0, models.BandLow},
	}
	for _, tt := range tests {
		if got := Classify(tt.pct); got != tt.want {
			t.Errorf("Classify(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}
