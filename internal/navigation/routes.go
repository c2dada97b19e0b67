package navigation

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// UnknownRouteError is returned when a push targets a path no route matches.
type UnknownRouteError struct {
	Path       string
	Suggestion string
}

func (e *UnknownRouteError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("navigation: unknown route %q (did you mean %q?)", e.Path, e.Suggestion)
	}
	return fmt.Sprintf("navigation: unknown route %q", e.Path)
}

// Routes is a table of route patterns. A segment starting with ':' matches
// any single segment and a trailing '*' matches the rest of the path.
type Routes struct {
	patterns []string
}

func NewRoutes(patterns ...string) *Routes {
	r := &Routes{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		r.patterns = append(r.patterns, ParseLocation(p).Pathname)
	}
	return r
}

func (r *Routes) Patterns() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.patterns...)
}

// Match reports whether pathname matches a route. An empty table matches
// everything.
func (r *Routes) Match(pathname string) bool {
	if r == nil || len(r.patterns) == 0 {
		return true
	}
	for _, p := range r.patterns {
		if matchPattern(p, pathname) {
			return true
		}
	}
	return false
}

// Check returns an *UnknownRouteError when loc matches no route.
func (r *Routes) Check(loc Location) error {
	if r.Match(loc.Pathname) {
		return nil
	}
	return &UnknownRouteError{Path: loc.Pathname, Suggestion: r.Suggest(loc.Pathname)}
}

// Suggest returns the pattern closest to pathname by edit distance, or "" when
// nothing is reasonably close.
func (r *Routes) Suggest(pathname string) string {
	if r == nil {
		return ""
	}
	best, bestDist := "", -1
	for _, p := range r.patterns {
		d := levenshtein.ComputeDistance(strings.ToLower(p), strings.ToLower(pathname))
		if bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	if bestDist < 0 || bestDist > max(len(pathname)/2, 2) {
		return ""
	}
	return best
}

func matchPattern(pattern, pathname string) bool {
	ps := splitPath(pattern)
	xs := splitPath(pathname)
	for i, seg := range ps {
		if seg == "*" && i == len(ps)-1 {
			return true
		}
		if i >= len(xs) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			continue
		}
		if seg != xs[i] {
			return false
		}
	}
	return len(ps) == len(xs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
