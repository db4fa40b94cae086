package analysis

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Constraint is a known route constraint.
type Constraint struct {
	Name        string
	MinArgs     int
	MaxArgs     int
	Description string
}

// Constraints is the catalogue of known route constraints in
// completion order.
var Constraints = []Constraint{
	{Name: "int", Description: "Matches any 32-bit integer"},
	{Name: "bool", Description: "Matches true or false, ignoring case"},
	{Name: "datetime", Description: "Matches a valid date and time"},
	{Name: "decimal", Description: "Matches a valid decimal value"},
	{Name: "double", Description: "Matches a valid 64-bit floating-point value"},
	{Name: "float", Description: "Matches a valid 32-bit floating-point value"},
	{Name: "guid", Description: "Matches a valid GUID"},
	{Name: "long", Description: "Matches any 64-bit integer"},
	{Name: "minlength", MinArgs: 1, MaxArgs: 1, Description: "Matches a string with a minimum length"},
	{Name: "maxlength", MinArgs: 1, MaxArgs: 1, Description: "Matches a string with a maximum length"},
	{Name: "length", MinArgs: 1, MaxArgs: 2, Description: "Matches a string of an exact length or a length range"},
	{Name: "min", MinArgs: 1, MaxArgs: 1, Description: "Matches an integer with a minimum value"},
	{Name: "max", MinArgs: 1, MaxArgs: 1, Description: "Matches an integer with a maximum value"},
	{Name: "range", MinArgs: 2, MaxArgs: 2, Description: "Matches an integer within a range of values"},
	{Name: "alpha", Description: "Matches one or more alphabetical characters"},
	{Name: "regex", MinArgs: 1, MaxArgs: 1, Description: "Matches a regular expression"},
	{Name: "required", Description: "Enforces that a non-parameter value is present"},
	{Name: "file", Description: "Matches a segment that looks like a file name"},
	{Name: "nonfile", Description: "Matches a segment that does not look like a file name"},
}

// LookupConstraint finds a constraint by name, ignoring case.
func LookupConstraint(name string) (Constraint, bool) {
	i := slices.IndexFunc(Constraints, func(c Constraint) bool {
		return strings.EqualFold(c.Name, name)
	})
	if i < 0 {
		return Constraint{}, false
	}
	return Constraints[i], true
}

func constraintNames() []string {
	names := make([]string, len(Constraints))
	for i, c := range Constraints {
		names[i] = c.Name
	}
	return names
}

// closestConstraint returns the best known constraint name for a typo
// or "" if none is close.
func closestConstraint(name string) string {
	if name == "" {
		return ""
	}
	names := constraintNames()
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", 3
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(strings.ToLower(name), n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// rankNames orders candidates by fuzzy match against prefix.
// An empty prefix keeps the original order.
func rankNames(prefix string, candidates []string) []string {
	if prefix == "" {
		return candidates
	}
	ranks := fuzzy.RankFindFold(prefix, candidates)
	sort.Stable(ranks)
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}
