package models

// Tier is the access level resolved at login. It determines which query
// constraints are forced onto every data access.
type Tier string

const (
	TierOwner      Tier = "owner"
	TierAdmin      Tier = "admin"
	TierSuperAdmin Tier = "superadmin"
)

// Session is the resolved identity for one logged-in caller. It is
// immutable for its lifetime; Plate and OwnerID are set once at creation
// and only for Owner sessions.
type Session struct {
	Identity string `json:"identity"`
	Tier     Tier   `json:"tier"`
	Plate    string `json:"plate,omitempty"`
	OwnerID  string `json:"owner_id,omitempty"`
}

// CanImport reports whether the session may run bulk imports.
func (s *Session) CanImport() bool {
	return s.Tier == TierAdmin || s.Tier == TierSuperAdmin
}
