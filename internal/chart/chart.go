// Package chart holds the curated account groups and the default system
// accounts every org needs before documents can be posted.
package chart

import "github.com/tinoosan/bizbooks/internal/ledger"

type GroupDef struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Reserved bool   `json:"reserved"`
}

var curated = map[ledger.AccountType][]GroupDef{
	ledger.AccountTypeAsset: {
		{Code: "bank", Label: "Bank"},
		{Code: "cash", Label: "Cash"},
		{Code: "receivable", Label: "Trade Receivables", Reserved: true},
		{Code: "inventory", Label: "Stock in Trade", Reserved: true},
		{Code: "tax_asset", Label: "Input Sales Tax", Reserved: true},
		{Code: "advances", Label: "Advances and Prepayments"},
		{Code: "fixed_assets", Label: "Property, Plant and Equipment"},
	},
	ledger.AccountTypeLiability: {
		{Code: "payable", Label: "Trade Payables", Reserved: true},
		{Code: "tax_liability", Label: "Sales Tax Payable", Reserved: true},
		{Code: "withholding", Label: "Withholding Tax Payable"},
		{Code: "loan", Label: "Loans"},
		{Code: "accrued", Label: "Accrued Liabilities"},
	},
	ledger.AccountTypeEquity: {
		{Code: "opening_balances", Label: "Opening Balances", Reserved: true},
		{Code: "owner_equity", Label: "Owner Equity"},
		{Code: "retained_earnings", Label: "Retained Earnings"},
	},
	ledger.AccountTypeRevenue: {
		{Code: "sales", Label: "Sales", Reserved: true},
		{Code: "services", Label: "Service Income"},
		{Code: "other_income", Label: "Other Income"},
	},
	ledger.AccountTypeExpense: {
		{Code: "cost_of_sales", Label: "Cost of Sales"},
		{Code: "salaries", Label: "Salaries and Wages"},
		{Code: "rent", Label: "Rent"},
		{Code: "utilities", Label: "Utilities"},
		{Code: "transport", Label: "Freight and Transport"},
		{Code: "general", Label: "General and Administrative"},
	},
}

// Types lists account types in presentation order.
var Types = []ledger.AccountType{
	ledger.AccountTypeAsset,
	ledger.AccountTypeLiability,
	ledger.AccountTypeEquity,
	ledger.AccountTypeRevenue,
	ledger.AccountTypeExpense,
}

// IsReserved reports whether group is kept for system accounts of type t.
func IsReserved(t ledger.AccountType, group string) bool {
	for _, g := range curated[t] {
		if g.Code == group && g.Reserved {
			return true
		}
	}
	return false
}

// GroupsFor returns the groups of t, or of every type when t is nil.
func GroupsFor(t *ledger.AccountType) []GroupDef {
	if t == nil {
		out := make([]GroupDef, 0)
		for _, typ := range Types {
			out = append(out, curated[typ]...)
		}
		return out
	}
	return curated[*t]
}

// SystemAccount describes one account of the default chart.
type SystemAccount struct {
	Code  string
	Name  string
	Type  ledger.AccountType
	Group string
	Role  ledger.AccountRole
}

// Defaults is the chart created for every org and currency. Document posting
// looks accounts up by Role.
var Defaults = []SystemAccount{
	{Code: "1100", Name: "Trade Receivables", Type: ledger.AccountTypeAsset, Group: "receivable", Role: ledger.RoleReceivable},
	{Code: "1200", Name: "Stock in Trade", Type: ledger.AccountTypeAsset, Group: "inventory", Role: ledger.RoleInventory},
	{Code: "1300", Name: "Input Sales Tax", Type: ledger.AccountTypeAsset, Group: "tax_asset", Role: ledger.RoleInputTax},
	{Code: "2100", Name: "Trade Payables", Type: ledger.AccountTypeLiability, Group: "payable", Role: ledger.RolePayable},
	{Code: "2200", Name: "Sales Tax Payable", Type: ledger.AccountTypeLiability, Group: "tax_liability", Role: ledger.RoleSalesTaxPayable},
	{Code: "3900", Name: "Opening Balances", Type: ledger.AccountTypeEquity, Group: "opening_balances", Role: ledger.RoleOpeningBalances},
	{Code: "4100", Name: "Sales", Type: ledger.AccountTypeRevenue, Group: "sales", Role: ledger.RoleSalesRevenue},
}

// IsSystemCode reports whether code belongs to the default chart. Other
// accounts may not take it, or the chart could not be created later.
func IsSystemCode(code string) bool {
	for _, d := range Defaults {
		if d.Code == code {
			return true
		}
	}
	return false
}

// ForRole returns the default definition for role.
func ForRole(role ledger.AccountRole) (SystemAccount, bool) {
	for _, d := range Defaults {
		if d.Role == role {
			return d, true
		}
	}
	return SystemAccount{}, false
}
