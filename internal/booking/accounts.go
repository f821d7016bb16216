package booking

// AccountRole names the ledger role a booking rule posts to. The mapper
// thinks in roles; the chart of accounts turns a role into a concrete
// account code.
type AccountRole string

// Roles used by the order booking batches.
const (
	RoleDebtors    AccountRole = "debtors"
	RoleRevenue    AccountRole = "revenue"
	RoleVATPayable AccountRole = "vat_payable"
	RoleCOGS       AccountRole = "cogs"
	RoleInventory  AccountRole = "inventory"
)

// ChartOfAccounts resolves an account role to an account code. A production
// implementation is backed by the bookkeeping system's chart of accounts; an
// unresolvable role returns the empty string, which e-Boekhouden treats as
// "fill in during import".
type ChartOfAccounts interface {
	Resolve(role AccountRole) string
}

// StaticChart is a fixed role-to-code mapping. The zero value resolves every
// role to the empty string.
type StaticChart map[AccountRole]string

// Resolve returns the configured code for the role, or "" when absent.
func (c StaticChart) Resolve(role AccountRole) string {
	return c[role]
}
