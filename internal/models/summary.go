package models

// Band classifies a dues record's completion percentage for display.
type Band string

const (
	BandHigh Band = "high" // >= 80%
	BandMid  Band = "mid"  // >= 50%
	BandLow  Band = "low"
)

// DuesSummary rolls up a dues result set.
type DuesSummary struct {
	TotalCollected float64 `json:"total_collected"`
	TotalBilled    float64 `json:"total_billed"`
	AvgCompletion  float64 `json:"avg_completion"`
	Bands          []Band  `json:"bands"` // one per record, result-set order
}

// TicketingSummary rolls up a ticketing result set. Confirmed revenue
// counts only records whose dispatch document was sent; projected
// revenue counts every record.
type TicketingSummary struct {
	ConfirmedRevenue float64 `json:"confirmed_revenue"`
	ProjectedRevenue float64 `json:"projected_revenue"`
}

// DomainSummary is the per-domain roll-up attached to a result set.
// Exactly one of the nested summaries is set, matching Domain.
type DomainSummary struct {
	Domain    Domain            `json:"domain"`
	Records   int               `json:"records"`
	Dues      *DuesSummary      `json:"dues,omitempty"`
	Ticketing *TicketingSummary `json:"ticketing,omitempty"`
}
