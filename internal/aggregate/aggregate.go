// Package aggregate computes the per-domain roll-ups shown alongside a
// result set.
package aggregate

import (
	"strings"

	"github.com/coop-records-api/internal/coerce"
	"github.com/coop-records-api/internal/models"
)

// statusSent is the ticketing status marking a dispatch document as
// sent. Matched case-insensitively against the stored value.
const statusSent = "Enviada"

const (
	colCollected = "Vr. Recaudo"
	colBilled    = "Vr. Esperado"
	colCompleted = "% Cump"
	colRevenue   = "Vr. Total"
	colSendState = "Estado Envio"
)

// Summarize computes the domain's roll-up over a result set. Dispatch
// and receivables define no summary and yield nil. Owner sessions see a
// summary only from 2 records up; a roll-up over a single row reveals
// nothing the row itself doesn't.
func Summarize(d models.Domain, tier models.Tier, records []models.Record) *models.DomainSummary {
	if tier == models.TierOwner && len(records) < 2 {
		return nil
	}

	switch d {
	case models.DomainDues:
		return duesSummary(records)
	case models.DomainTicketing:
		return ticketingSummary(records)
	default:
		return nil
	}
}

func duesSummary(records []models.Record) *models.DomainSummary {
	s := &models.DuesSummary{Bands: make([]models.Band, len(records))}

	var pctSum float64
	for i, rec := range records {
		s.TotalCollected += money(rec[colCollected])
		s.TotalBilled += money(rec[colBilled])

		pct := percent(rec[colCompleted])
		pctSum += pct
		s.Bands[i] = Classify(pct)
	}
	if len(records) > 0 {
		s.AvgCompletion = pctSum / float64(len(records))
	}

	return &models.DomainSummary{
		Domain:  models.DomainDues,
		Records: len(records),
		Dues:    s,
	}
}

// ticketingSummary computes confirmed and projected revenue in one pass.
func ticketingSummary(records []models.Record) *models.DomainSummary {
	s := &models.TicketingSummary{}

	for _, rec := range records {
		amount := money(rec[colRevenue])
		s.ProjectedRevenue += amount
		if strings.EqualFold(strings.TrimSpace(rec.String(colSendState)), statusSent) {
			s.ConfirmedRevenue += amount
		}
	}

	return &models.DomainSummary{
		Domain:    models.DomainTicketing,
		Records:   len(records),
		Ticketing: s,
	}
}

// Classify buckets a completion percentage for the progress display.
func Classify(pct float64) models.Band {
	switch {
	case pct >= 80:
		return models.BandHigh
	case pct >= 50:
		return models.BandMid
	default:
		return models.BandLow
	}
}

// money reads a record value as an amount. Stored values are float64,
// but raw strings from an un-coerced source parse through the same
// tolerant rule as ingestion.
func money(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		return coerce.Money(t)
	default:
		return 0
	}
}

func percent(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		return coerce.Percent(t)
	default:
		return 0
	}
}
