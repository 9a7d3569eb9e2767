package models

import "fmt"

// Domain identifies one of the four record categories the cooperative
// tracks. It is a closed set: every per-domain rule (backing table,
// canonical columns, summary formulas) dispatches through lookup tables
// keyed on it, never through free-form string comparison.
type Domain string

const (
	DomainDispatch    Domain = "dispatch"
	DomainReceivables Domain = "receivables"
	DomainTicketing   Domain = "ticketing"
	DomainDues        Domain = "dues"
)

// Canonical spellings for the three identifier-like columns shared
// across domains. Reconciliation guarantees these exact names.
const (
	ColOwnerID = "Cedula"
	ColPlate   = "Placa"
	ColDate    = "Fecha"
	ColRowNum  = "No."
)

// domainTables maps each domain to its backing table. Table and column
// names mirror the cooperative's spreadsheet exports verbatim, which is
// why several carry spaces or periods and must always be quoted in SQL.
var domainTables = map[Domain]string{
	DomainDispatch:    "despachos",
	DomainReceivables: "cuentas_cobrar",
	DomainTicketing:   "planillaje",
	DomainDues:        "aportes",
}

// Domains lists all known domains in display order.
func Domains() []Domain {
	return []Domain{DomainDispatch, DomainReceivables, DomainTicketing, DomainDues}
}

// ParseDomain converts user input into a Domain or fails.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if _, ok := domainTables[d]; !ok {
		return "", fmt.Errorf("unknown domain: %q", s)
	}
	return d, nil
}

// Table returns the backing table name for the domain.
func (d Domain) Table() string {
	return domainTables[d]
}

// Valid reports whether the domain is one of the four known categories.
func (d Domain) Valid() bool {
	_, ok := domainTables[d]
	return ok
}

// DomainByTable resolves a table name back to its domain. Used when a
// change notification arrives carrying only the table name.
func DomainByTable(table string) (Domain, bool) {
	for d, t := range domainTables {
		if t == table {
			return d, true
		}
	}
	return "", false
}
