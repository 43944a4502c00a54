package rules

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// CompiledPattern is a named regex compiled once at load time.
type CompiledPattern struct {
	Name string
	Re   *regexp.Regexp
}

// CompiledBucket is a category keyword bucket compiled to a single
// word-boundary regex. Bucket order is preserved from the rule file.
type CompiledBucket struct {
	Name string
	Re   *regexp.Regexp
}

// Compiled is the read-only pattern arena shared by all workers. Every
// regex is compiled exactly once here; extractors never compile at match
// time.
type Compiled struct {
	Rules *Rules

	ChinaCountry      *regexp.Regexp
	TaiwanExclusion   *regexp.Regexp
	HongKong          *regexp.Regexp
	KnownEntities     *regexp.Regexp
	StrategicEntities *regexp.Regexp
	GeoTokens         *regexp.Regexp
	GenericTokens     *regexp.Regexp
	SourcingPhrases   *regexp.Regexp
	GeoPatterns       []CompiledPattern

	DenyExact    map[string]struct{}
	DenyPatterns []CompiledPattern

	StrategicBuckets []CompiledBucket
	CommodityBuckets []CompiledBucket
}

// Compile builds the pattern arena from a validated rule table.
func Compile(r *Rules) (*Compiled, error) {
	c := &Compiled{Rules: r}

	// Prime the hash cache here so concurrent workers only ever read it.
	r.hash = hashRules(r)

	var err error
	if c.ChinaCountry, err = listRegexp(append(append([]string{}, r.Country.ChinaCodes...), r.Country.ChinaCities...)); err != nil {
		return nil, eris.Wrap(err, "rules: compile china country list")
	}
	if c.TaiwanExclusion, err = listRegexp(r.Country.TaiwanExclusions); err != nil {
		return nil, eris.Wrap(err, "rules: compile taiwan exclusions")
	}
	if c.HongKong, err = listRegexp(r.Country.HongKong); err != nil {
		return nil, eris.Wrap(err, "rules: compile hong kong list")
	}
	if c.KnownEntities, err = listRegexp(r.Entities.Known); err != nil {
		return nil, eris.Wrap(err, "rules: compile known entities")
	}
	if c.StrategicEntities, err = listRegexp(r.Entities.Strategic); err != nil {
		return nil, eris.Wrap(err, "rules: compile strategic entities")
	}
	if c.GeoTokens, err = listRegexp(r.Entities.GeoTokens); err != nil {
		return nil, eris.Wrap(err, "rules: compile geo tokens")
	}
	if c.GenericTokens, err = listRegexp(r.Entities.GenericTokens); err != nil {
		return nil, eris.Wrap(err, "rules: compile generic tokens")
	}
	if c.SourcingPhrases, err = listRegexp(r.SourcingPhrases); err != nil {
		return nil, eris.Wrap(err, "rules: compile sourcing phrases")
	}

	for _, p := range r.GeoPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "rules: compile geo pattern %q", p.Name)
		}
		c.GeoPatterns = append(c.GeoPatterns, CompiledPattern{Name: p.Name, Re: re})
	}

	c.DenyExact = make(map[string]struct{}, len(r.FalsePositives.Exact))
	for _, e := range r.FalsePositives.Exact {
		c.DenyExact[normalizeExact(e)] = struct{}{}
	}
	for _, p := range r.FalsePositives.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "rules: compile deny pattern %q", p.Name)
		}
		c.DenyPatterns = append(c.DenyPatterns, CompiledPattern{Name: p.Name, Re: re})
	}

	if c.StrategicBuckets, err = compileBuckets(r.Categories.Strategic); err != nil {
		return nil, eris.Wrap(err, "rules: compile strategic buckets")
	}
	if c.CommodityBuckets, err = compileBuckets(r.Categories.Commodity); err != nil {
		return nil, eris.Wrap(err, "rules: compile commodity buckets")
	}

	return c, nil
}

// DeniedExact reports whether a full entity name is on the exact deny list.
func (c *Compiled) DeniedExact(name string) bool {
	_, ok := c.DenyExact[normalizeExact(name)]
	return ok
}

func normalizeExact(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(s))), " ")
}

func compileBuckets(buckets []KeywordBucket) ([]CompiledBucket, error) {
	out := make([]CompiledBucket, 0, len(buckets))
	for _, b := range buckets {
		re, err := listRegexp(b.Keywords)
		if err != nil {
			return nil, eris.Wrapf(err, "bucket %q", b.Name)
		}
		out = append(out, CompiledBucket{Name: b.Name, Re: re})
	}
	return out, nil
}

// listRegexp compiles a token list into one case-insensitive alternation.
// Word boundaries are applied per token edge: a \b assertion only works
// next to a word character, so tokens like "H.K." get a lookaround-free
// edge check instead of a bare \b.
func listRegexp(tokens []string) (*regexp.Regexp, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	alts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		alts = append(alts, boundToken(t))
	}
	if len(alts) == 0 {
		return nil, nil
	}
	return regexp.Compile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

func boundToken(t string) string {
	q := regexp.QuoteMeta(t)
	if isWordByte(t[0]) {
		q = `\b` + q
	}
	if isWordByte(t[len(t)-1]) {
		q += `\b`
	}
	return q
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}
