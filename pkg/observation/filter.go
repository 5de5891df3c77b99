package observation

import (
	"slices"
	"strings"
)

// Filter selects observations from a store. Zero fields do not filter.
type Filter struct {
	ProductIDs []int
	Parser     string
	// ScannerPrefix is a case-sensitive prefix of Observation.Scanner.
	ScannerPrefix string
	Status        string
}

// Matches reports whether o passes every set criterion of f.
func (f Filter) Matches(o *Observation) bool {
	if len(f.ProductIDs) > 0 && !slices.Contains(f.ProductIDs, o.ProductID) {
		return false
	}
	if f.Parser != "" && o.Parser != f.Parser {
		return false
	}
	if f.ScannerPrefix != "" && !strings.HasPrefix(o.Scanner, f.ScannerPrefix) {
		return false
	}
	if f.Status != "" && o.CurrentStatus != f.Status {
		return false
	}
	return true
}
