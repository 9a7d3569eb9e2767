package coerce

import "testing"

func TestMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"currency symbol and dot grouping", "$ 1.234.567", 1234567},
		{"plain digits", "1234567", 1234567},
		{"comma grouping with decimals", "1,234,567.00", 1234567},
		{"single decimal point", "150.75", 150.75},
		{"negative amount", "-2500", -2500},
		{"whitespace padded", "  98000  ", 98000},
		{"empty string", "", 0},
		{"non-numeric", "pendiente", 0},
		{"lone symbols", "$ .", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Money(tt.input); got != tt.want {
				t.Errorf("Money(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"dot separator", "85.5", 85.5},
		{"comma separator", "85,5", 85.5},
		{"integer", "90", 90},
		{"with percent sign", "60%", 60},
		{"empty", "", 0},
		{"garbage", "n/a", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.input); got != tt.want {
				t.Errorf("Percent(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestISODate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"day first", "05/03/2024", "2024-03-05"},
		{"already ISO", "2024-03-05", "2024-03-05"},
		{"day first unpadded", "5/3/2024", "2024-03-05"},
		{"missing segment", "03/2024", "03/2024"},
		{"three digit year", "05/03/202", "05/03/202"},
		{"not a date", "sin fecha", "sin fecha"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ISODate(tt.input); got != tt.want {
				t.Errorf("ISODate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsMoneyColumn(t *testing.T) {
	money := []string{"Vr. Recaudo", "Vr. Deuda", "Vr. Total", "Vr. Esperado", "Total Collected", "fare"}
	for _, col := range money {
		if !IsMoneyColumn(col) {
			t.Errorf("IsMoneyColumn(%q) = false, want true", col)
		}
	}

	other := []string{"Placa", "Cedula", "Fecha", "Conductor", "Observacion", "% Cump"}
	for _, col := range other {
		if IsMoneyColumn(col) {
			t.Errorf("IsMoneyColumn(%q) = true, want false", col)
		}
	}
}

func TestIsDateColumn(t *testing.T) {
	if !IsDateColumn("Fecha") {
		t.Error("Fecha should be a date column")
	}
	if IsDateColumn("Placa") {
		t.Error("Placa should not be a date column")
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("CC 1.045.223"); got != "1045223" {
		t.Errorf("Digits = %q, want 1045223", got)
	}
	if got := Digits(""); got != "" {
		t.Errorf("Digits(\"\") = %q, want empty", got)
	}
}
