package auth

// Role is a gateway user role. Roles form a total order: a higher-ranked
// role satisfies any requirement a lower-ranked role satisfies.
type Role string

const (
	RoleTrader      Role = "TRADER"
	RoleRiskManager Role = "RISK_MANAGER"
	RoleCompliance  Role = "COMPLIANCE"
	RoleAdmin       Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleTrader:      1,
	RoleRiskManager: 2,
	RoleCompliance:  3,
	RoleAdmin:       4,
}

// Satisfies reports whether r meets or exceeds the required role.
func (r Role) Satisfies(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}
