// Package states holds the FIPS registry for US states and territories and
// the range expansion used by CLI arguments.
package states

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// State identifies one state or territory processing unit.
type State struct {
	FIPS string `yaml:"fips"` // two-digit, zero-padded
	Abbr string `yaml:"abbr"` // USPS abbreviation
	Name string `yaml:"name"`
}

// DirName returns the conventional per-state directory name, e.g.
// "08_CO_Colorado". Spaces in the name are replaced with underscores.
func (s State) DirName() string {
	return s.FIPS + "_" + s.Abbr + "_" + strings.ReplaceAll(s.Name, " ", "_")
}

// All lists every state, DC, and territory in FIPS order.
var All = []State{
	{"01", "AL", "Alabama"},
	{"02", "AK", "Alaska"},
	{"04", "AZ", "Arizona"},
	{"05", "AR", "Arkansas"},
	{"06", "CA", "California"},
	{"08", "CO", "Colorado"},
	{"09", "CT", "Connecticut"},
	{"10", "DE", "Delaware"},
	{"11", "DC", "District of Columbia"},
	{"12", "FL", "Florida"},
	{"13", "GA", "Georgia"},
	{"15", "HI", "Hawaii"},
	{"16", "ID", "Idaho"},
	{"17", "IL", "Illinois"},
	{"18", "IN", "Indiana"},
	{"19", "IA", "Iowa"},
	{"20", "KS", "Kansas"},
	{"21", "KY", "Kentucky"},
	{"22", "LA", "Louisiana"},
	{"23", "ME", "Maine"},
	{"24", "MD", "Maryland"},
	{"25", "MA", "Massachusetts"},
	{"26", "MI", "Michigan"},
	{"27", "MN", "Minnesota"},
	{"28", "MS", "Mississippi"},
	{"29", "MO", "Missouri"},
	{"30", "MT", "Montana"},
	{"31", "NE", "Nebraska"},
	{"32", "NV", "Nevada"},
	{"33", "NH", "New Hampshire"},
	{"34", "NJ", "New Jersey"},
	{"35", "NM", "New Mexico"},
	{"36", "NY", "New York"},
	{"37", "NC", "North Carolina"},
	{"38", "ND", "North Dakota"},
	{"39", "OH", "Ohio"},
	{"40", "OK", "Oklahoma"},
	{"41", "OR", "Oregon"},
	{"42", "PA", "Pennsylvania"},
	{"44", "RI", "Rhode Island"},
	{"45", "SC", "South Carolina"},
	{"46", "SD", "South Dakota"},
	{"47", "TN", "Tennessee"},
	{"48", "TX", "Texas"},
	{"49", "UT", "Utah"},
	{"50", "VT", "Vermont"},
	{"51", "VA", "Virginia"},
	{"53", "WA", "Washington"},
	{"54", "WV", "West Virginia"},
	{"55", "WI", "Wisconsin"},
	{"56", "WY", "Wyoming"},
	{"60", "AS", "American Samoa"},
	{"64", "FM", "Federated States of Micronesia"},
	{"66", "GU", "Guam"},
	{"68", "MH", "Marshall Islands"},
	{"69", "MP", "Northern Mariana Islands"},
	{"70", "PW", "Palau"},
	{"72", "PR", "Puerto Rico"},
	{"74", "UM", "U.S. Minor Outlying Islands"},
	{"78", "VI", "U.S. Virgin Islands"},
}

// ByAbbr returns the state for a USPS abbreviation (case-insensitive).
func ByAbbr(abbr string) (State, bool) {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	for _, s := range All {
		if s.Abbr == abbr {
			return s, true
		}
	}
	return State{}, false
}

// ByFIPS returns the state for a two-digit FIPS code.
func ByFIPS(fips string) (State, bool) {
	if len(fips) == 1 {
		fips = "0" + fips
	}
	for _, s := range All {
		if s.FIPS == fips {
			return s, true
		}
	}
	return State{}, false
}

// Expand resolves CLI state arguments into a deduplicated, FIPS-ordered list.
// Each argument is an abbreviation ("CO"), an inclusive abbreviation range
// ("CO-FL", ordered by FIPS), or "all". An empty argument list means all.
func Expand(args []string) ([]State, error) {
	if len(args) == 0 {
		return append([]State(nil), All...), nil
	}

	seen := make(map[string]bool)
	var out []State
	add := func(s State) {
		if !seen[s.FIPS] {
			seen[s.FIPS] = true
			out = append(out, s)
		}
	}

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.EqualFold(arg, "all") {
			for _, s := range All {
				add(s)
			}
			continue
		}

		if lo, hi, ok := strings.Cut(arg, "-"); ok {
			from, okFrom := ByAbbr(lo)
			to, okTo := ByAbbr(hi)
			if !okFrom || !okTo {
				return nil, eris.Errorf("states: invalid range %q", arg)
			}
			if from.FIPS > to.FIPS {
				from, to = to, from
			}
			for _, s := range All {
				if s.FIPS >= from.FIPS && s.FIPS <= to.FIPS {
					add(s)
				}
			}
			continue
		}

		s, ok := ByAbbr(arg)
		if !ok {
			return nil, eris.Errorf("states: unknown state %q", arg)
		}
		add(s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FIPS < out[j].FIPS })
	return out, nil
}

// LoadOverride reads a YAML registry file and returns its states. Used when a
// run needs a custom subset or renamed directories without code changes.
func LoadOverride(path string) ([]State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "states: read override file")
	}

	var doc struct {
		States []State `yaml:"states"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "states: parse override file")
	}
	if len(doc.States) == 0 {
		return nil, eris.Errorf("states: override file %s lists no states", path)
	}

	for _, s := range doc.States {
		if len(s.FIPS) != 2 || s.Abbr == "" {
			return nil, eris.Errorf("states: invalid override entry %+v", s)
		}
	}
	return doc.States, nil
}
