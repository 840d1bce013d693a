package rules

import (
	"errors"
	"fmt"
	"strings"
)

// Filter is a map shorthand token restricting which spots are shown.
type Filter string

const (
	FilterNone    Filter = ""
	Filter1P      Filter = "1P"
	Filter2P      Filter = "2P"
	Filter4P      Filter = "4P"
	FilterLoading Filter = "Loading"
)

var ErrUnknownFilter = errors.New("unknown filter")

var filterMinutes = map[Filter]int{
	Filter1P: 60,
	Filter2P: 120,
	Filter4P: 240,
}

// ParseFilter accepts the shorthand tokens case-insensitively. An empty
// string or "None" yields FilterNone.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return FilterNone, nil
	}
	for _, f := range []Filter{Filter1P, Filter2P, Filter4P, FilterLoading} {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return FilterNone, fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Minutes returns the time limit a numeric shorthand stands for.
func (f Filter) Minutes() (int, bool) {
	m, ok := filterMinutes[f]
	return m, ok
}

// Matches reports whether a spot with the given description and periods
// satisfies the filter. FilterNone matches everything; any other filter
// never matches a spot without periods.
func (f Filter) Matches(description *string, periods []Period) bool {
	if f == FilterNone {
		return true
	}
	if len(periods) == 0 {
		return false
	}

	if minutes, ok := f.Minutes(); ok {
		for _, p := range periods {
			if p.TimeLimitMinutes != nil && *p.TimeLimitMinutes == minutes {
				return true
			}
		}
		return false
	}

	if f == FilterLoading {
		if containsFold(description, "loading") {
			return true
		}
		for _, p := range periods {
			if containsFold(p.SpecialConditions, "loading") {
				return true
			}
		}
	}
	return false
}

func containsFold(s *string, sub string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), sub)
}
