// Package correlate joins classified records across independently-sourced
// datasets on a normalized entity name + country key.
package correlate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes strips trailing legal-form suffixes so "Huawei Ltd",
// "Huawei Co., Ltd." and "HUAWEI LIMITED" key identically.
var legalSuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*\b(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|L\.?L\.?P\.?|` +
		`GMBH|S\.?A\.?|B\.?V\.?|N\.?V\.?|A\.?G\.?|PLC|PTY|PTE|` +
		`GROUP|HOLDINGS?)\s*\.?\s*$`)

var (
	nonAlnum   = regexp.MustCompile(`[^A-Z0-9 ]+`)
	multiSpace = regexp.MustCompile(`\s{2,}`)

	// foldMarks decomposes and drops combining marks so accented variants
	// collapse to their base letters.
	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeName canonicalizes an entity name for cross-source keying:
// diacritic folding, upper-casing, punctuation stripping, repeated
// legal-suffix removal and whitespace collapsing.
func NormalizeName(name string) string {
	n, _, err := transform.String(foldMarks, name)
	if err != nil {
		n = name
	}
	n = strings.ToUpper(strings.TrimSpace(n))

	// Suffixes stack ("... Co., Ltd."), strip until fixed point.
	for {
		stripped := legalSuffixes.ReplaceAllString(n, "")
		if stripped == n {
			break
		}
		n = stripped
	}

	n = nonAlnum.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// NormalizeCountry canonicalizes a country value for keying.
func NormalizeCountry(country string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(country))), " ")
}
