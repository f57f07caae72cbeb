package catalog

import "strings"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Filter is the typed query each storage backend implements once: free-text
// search over name+description, substring category match, inclusive price
// bounds in cents, and page/limit pagination.
type Filter struct {
	Search        string
	Category      string
	MinPriceCents *int
	MaxPriceCents *int
	Page          int
	Limit         int
}

// Normalize clamps pagination to sane bounds.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
}

func (f *Filter) Offset() int { return (f.Page - 1) * f.Limit }

// Matches reports whether p passes every bound set on the filter.
// Text matching is case-insensitive substring, like the original catalog.
func (f *Filter) Matches(p *Product) bool {
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
		return false
	}
	if f.Category != "" && !containsFold(p.Category, f.Category) {
		return false
	}
	if f.MinPriceCents != nil && p.PriceCents < *f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents != nil && p.PriceCents > *f.MaxPriceCents {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
