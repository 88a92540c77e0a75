// Package maintenance decides whether request paths are redirected to the
// maintenance holding page.
//
// The same pure predicate backs every evaluation site (the server-side
// middleware and the status endpoint polled by browser-side routing) so the
// two can never reach different verdicts for the same path.
package maintenance

import (
	"regexp"
	"strings"
)

// DefaultPage is the holding page path.
const DefaultPage = "/maintenance"

// HomePath is the safe fallback destination when the holding page is visited
// outside a maintenance window.
const HomePath = "/"

// Decision is the gate verdict for a request path.
type Decision int

const (
	// Pass lets the request through unmodified.
	Pass Decision = iota
	// RedirectHome sends the request to the home path. Issued when the
	// holding page itself is visited while maintenance is disabled.
	RedirectHome
	// RedirectMaintenance sends the request to the holding page.
	RedirectMaintenance
)

// Enabled interprets the tri-typed maintenance flag.
//
// The flag may arrive as a string, bool, or number depending on which
// environment layer produced it. Only "true"/"1" (string, case-insensitive),
// true (bool), and 1 (numeric) enable maintenance; every other value,
// including malformed ones, disables it. Fail-open keeps the site available
// when configuration is broken.
func Enabled(value any) bool {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		return strings.EqualFold(trimmed, "true") || trimmed == "1"
	case bool:
		return v
	case int:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	default:
		return false
	}
}

// Gate evaluates request paths against the maintenance configuration.
type Gate struct {
	Enabled  bool
	Page     string
	Excluded []string
}

// NewGate builds a gate from a raw flag value and excluded path patterns.
// The holding page itself is always excluded so the gate cannot redirect
// into a loop.
func NewGate(flag any, excluded ...string) Gate {
	page := DefaultPage
	patterns := make([]string, 0, len(excluded)+1)
	patterns = append(patterns, page)
	for _, pattern := range excluded {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || pattern == page {
			continue
		}
		patterns = append(patterns, pattern)
	}
	return Gate{
		Enabled:  Enabled(flag),
		Page:     page,
		Excluded: patterns,
	}
}

// Decide returns the gate verdict for path.
//
// When maintenance is disabled the holding page redirects home and every
// other path passes. When enabled, any path not matching an excluded pattern
// redirects to the holding page.
func (g Gate) Decide(path string) Decision {
	page := g.Page
	if page == "" {
		page = DefaultPage
	}

	if !g.Enabled {
		if path == page {
			return RedirectHome
		}
		return Pass
	}

	if g.excludes(path) {
		return Pass
	}
	return RedirectMaintenance
}

// excludes reports whether path matches any excluded pattern.
func (g Gate) excludes(path string) bool {
	for _, pattern := range g.Excluded {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern treats pattern as a glob where * matches any substring.
func matchPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return pattern == path
	}

	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}
