// Package bdc implements the per-block aggregation and serving classification
// of FCC Broadband Data Collection availability records.
package bdc

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// UnknownSentinel is substituted for unresolved technology codes and
// provider IDs. Records carrying it are kept: an unknown provider still
// occupies a location.
const UnknownSentinel = "Unknown"

// Technology describes one BDC transmission technology code.
type Technology struct {
	Code int
	Abbr string
	// CountsTowardServing marks technologies whose speeds feed the
	// unserved/underserved/served computation. Satellite and mobile
	// codes are excluded from fixed-broadband classification.
	CountsTowardServing bool
}

// DefaultTechnologies returns the built-in BDC fixed and mobile technology
// codes, used when no reference file is supplied.
func DefaultTechnologies() []Technology {
	return []Technology{
		{Code: 10, Abbr: "Copper", CountsTowardServing: true},
		{Code: 40, Abbr: "Cable", CountsTowardServing: true},
		{Code: 50, Abbr: "Fiber", CountsTowardServing: true},
		{Code: 60, Abbr: "GeoSat", CountsTowardServing: false},
		{Code: 61, Abbr: "NGeoSt", CountsTowardServing: false},
		{Code: 70, Abbr: "UnlFWA", CountsTowardServing: false},
		{Code: 71, Abbr: "LicFWA", CountsTowardServing: true},
		{Code: 72, Abbr: "LBRFWA", CountsTowardServing: true},
		{Code: 0, Abbr: "Other", CountsTowardServing: false},
		{Code: 300, Abbr: "3G", CountsTowardServing: false},
		{Code: 400, Abbr: "4GLTE", CountsTowardServing: false},
		{Code: 500, Abbr: "5GNR", CountsTowardServing: false},
	}
}

// TechTable is an immutable technology-code lookup, built once per run.
type TechTable struct {
	byCode map[int]Technology
	abbrs  []string
}

// NewTechTable builds a lookup from the given technologies. Abbreviations
// are trimmed; insertion order is preserved for output column ordering.
func NewTechTable(techs []Technology) *TechTable {
	t := &TechTable{byCode: make(map[int]Technology, len(techs))}
	for _, tech := range techs {
		tech.Abbr = strings.TrimSpace(tech.Abbr)
		if _, dup := t.byCode[tech.Code]; dup {
			continue
		}
		t.byCode[tech.Code] = tech
		t.abbrs = append(t.abbrs, tech.Abbr)
	}
	return t
}

// Resolve maps a technology code (int or string form) to its entry.
// Unknown or malformed codes resolve to the Unknown sentinel with
// CountsTowardServing=false and are warn-logged, never an error.
func (t *TechTable) Resolve(code any) Technology {
	n, err := CanonicalTechCode(code)
	if err != nil {
		zap.L().Warn("bdc: invalid technology code", zap.Any("code", code))
		return Technology{Code: -1, Abbr: UnknownSentinel}
	}
	tech, ok := t.byCode[n]
	if !ok {
		zap.L().Warn("bdc: unknown technology code", zap.Int("code", n))
		return Technology{Code: n, Abbr: UnknownSentinel}
	}
	return tech
}

// Abbrs returns every known abbreviation in table order. The returned slice
// must not be mutated.
func (t *TechTable) Abbrs() []string {
	return t.abbrs
}

// CanonicalTechCode normalizes a technology code to its canonical int form.
func CanonicalTechCode(v any) (int, error) {
	switch c := v.(type) {
	case int:
		return c, nil
	case int64:
		return int(c), nil
	case float64:
		return int(c), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			return 0, err
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported technology code type %T", v)
	}
}

// ProviderTable is an immutable provider_id to holding-company lookup.
type ProviderTable struct {
	byID map[string]string
}

// NewProviderTable builds a lookup keyed by canonical (zero-padded string)
// provider IDs.
func NewProviderTable(m map[string]string) *ProviderTable {
	t := &ProviderTable{byID: make(map[string]string, len(m))}
	for id, holder := range m {
		t.byID[CanonicalProviderID(id)] = strings.TrimSpace(holder)
	}
	return t
}

// Resolve maps a provider ID (string or integer form) to its holding
// company. Unknown IDs resolve to the Unknown sentinel and are warn-logged.
func (t *ProviderTable) Resolve(id any) string {
	key := CanonicalProviderID(id)
	holder, ok := t.byID[key]
	if !ok || holder == "" {
		zap.L().Warn("bdc: unknown provider id", zap.String("provider_id", key))
		return UnknownSentinel
	}
	return holder
}

// CanonicalProviderID normalizes a provider ID to a six-digit zero-padded
// string, the form used in FCC provider lists.
func CanonicalProviderID(v any) string {
	var s string
	switch id := v.(type) {
	case string:
		s = strings.TrimSpace(id)
	case int:
		s = strconv.Itoa(id)
	case int64:
		s = strconv.FormatInt(id, 10)
	case float64:
		s = strconv.Itoa(int(id))
	default:
		s = fmt.Sprint(id)
	}
	return padLeft(s, 6)
}

// padLeft zero-pads s to width n. Longer strings pass through unchanged.
func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
