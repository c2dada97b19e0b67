// Package navigation keeps the routing slice of the store in step with an
// external navigation history.
package navigation

import (
	"strings"
)

// HistoryAction tells how a location was reached.
type HistoryAction string

const (
	ActionPush    HistoryAction = "PUSH"
	ActionReplace HistoryAction = "REPLACE"
	ActionPop     HistoryAction = "POP"
)

// Location is one entry of the navigation history.
type Location struct {
	Pathname string        `json:"pathname"`
	Search   string        `json:"search,omitempty"`
	Hash     string        `json:"hash,omitempty"`
	Key      string        `json:"key,omitempty"`
	Action   HistoryAction `json:"action,omitempty"`
}

// ParseLocation splits a path such as "/nodes/1?tab=logs#top".
func ParseLocation(path string) Location {
	var loc Location
	if i := strings.IndexByte(path, '#'); i >= 0 {
		loc.Hash = path[i:]
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		loc.Search = path[i:]
		path = path[:i]
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	loc.Pathname = path
	return loc
}

// Path renders the location back into a single string.
func (l Location) Path() string {
	return l.Pathname + l.Search + l.Hash
}

// Same reports whether two locations denote the same history entry: keys when
// both carry one, paths otherwise.
func (l Location) Same(o Location) bool {
	if l.Key != "" && o.Key != "" {
		return l.Key == o.Key
	}
	return l.Path() == o.Path()
}

func (l Location) String() string { return l.Path() }
