package slug

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sales Tax (Payable)": "sales_tax_payable",
		"  Cash  ":            "cash",
		"HBL--Current A/C":    "hbl_current_a_c",
		"***":                 "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	long := Slugify(strings.Repeat("ab ", 30))
	if len(long) > maxLen || strings.HasSuffix(long, "_") {
		t.Fatalf("long slug not trimmed: %q", long)
	}
}

func TestIsSlug(t *testing.T) {
	if !IsSlug("tax_liability") || IsSlug("Tax") || IsSlug("a") || IsSlug("has space") {
		t.Fatalf("IsSlug mismatch")
	}
}
