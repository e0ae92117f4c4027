package chart

import (
	"testing"

	"github.com/tinoosan/bizbooks/internal/ledger"
)

func TestDefaultsUseReservedGroups(t *testing.T) {
	seenCodes := map[string]bool{}
	for _, d := range Defaults {
		if !IsReserved(d.Type, d.Group) {
			t.Fatalf("%s: group %s should be reserved for %s", d.Code, d.Group, d.Type)
		}
		if seenCodes[d.Code] {
			t.Fatalf("duplicate code %s", d.Code)
		}
		seenCodes[d.Code] = true
		if !IsSystemCode(d.Code) {
			t.Fatalf("%s should be a system code", d.Code)
		}
	}
	if IsSystemCode("1010") {
		t.Fatalf("1010 is not in the default chart")
	}
	if _, ok := ForRole(ledger.RoleSalesTaxPayable); !ok {
		t.Fatalf("sales tax payable missing from defaults")
	}
	if _, ok := ForRole(ledger.RoleNone); ok {
		t.Fatalf("role none must not resolve")
	}
}

func TestGroupsFor(t *testing.T) {
	typ := ledger.AccountTypeEquity
	if got := GroupsFor(&typ); len(got) != 3 || got[0].Code != "opening_balances" {
		t.Fatalf("unexpected equity groups: %+v", got)
	}
	total := 0
	for _, tt := range Types {
		tt := tt
		total += len(GroupsFor(&tt))
	}
	if len(GroupsFor(nil)) != total {
		t.Fatalf("nil type should return every group")
	}
}
