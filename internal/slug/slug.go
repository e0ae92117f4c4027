// Package slug validates and builds the lowercase identifiers used for
// account groups and metadata keys.
package slug

import (
	"regexp"
	"strings"
)

// Pattern is the accepted slug shape.
const Pattern = `^[a-z0-9_]{2,40}$`

const maxLen = 40

var reSlug = regexp.MustCompile(Pattern)

// IsSlug reports whether s matches Pattern.
func IsSlug(s string) bool { return reSlug.MatchString(s) }

// Slugify lowercases s, turns every run of other characters into one '_',
// cuts it to 40 characters and trims '_' from both ends.
// "Sales Tax (Payable)" becomes "sales_tax_payable".
func Slugify(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			if b.Len()+1 >= maxLen {
				break
			}
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
		if b.Len() >= maxLen {
			break
		}
	}
	return b.String()
}
