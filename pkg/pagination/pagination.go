package pagination

import (
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Page describes a served page alongside its rows.
type Page struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Bounds clamps a caller-provided limit to [1, max], falling back to def.
func Bounds(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// NormalizeLimit enforces the package default and maximum limits.
func NormalizeLimit(limit int) int {
	return Bounds(limit, DefaultLimit, MaxLimit)
}

// Normalize returns params with page >= 1 and the limit clamped.
func (p Params) Normalize(def, max int) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = Bounds(p.Limit, def, max)
	return p
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// NewPage builds the page descriptor for a total row count.
func NewPage(p Params, total int64) Page {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Page{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// ParseInt reads a positive integer query value, returning 0 when absent or invalid.
func ParseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
