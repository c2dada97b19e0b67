package tui

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	actionQuit           = "quit"
	actionNextTab        = "next-tab"
	actionPrevTab        = "prev-tab"
	actionBack           = "back"
	actionForward        = "forward"
	actionRefresh        = "refresh"
	actionScaleDown      = "scale-down"
	actionScaleUp        = "scale-up"
	actionToggleDevtools = "toggle-devtools"
	actionClose          = "close"
)

const scopeDevtools = "pane:devtools"

type KeyBinding struct {
	Keys        []string
	Action      string
	Description string
	Scopes      []string
}

type KeyRegistry struct {
	bindings []KeyBinding
}

func NewKeyRegistry(bindings []KeyBinding) *KeyRegistry {
	return &KeyRegistry{bindings: slices.Clone(bindings)}
}

func (r *KeyRegistry) Register(binding KeyBinding) {
	r.bindings = append(r.bindings, binding)
}

func (r *KeyRegistry) BindingsForScope(scope string) []KeyBinding {
	out := make([]KeyBinding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if scopeMatch(scope, b.Scopes) {
			out = append(out, b)
		}
	}
	return out
}

func (r *KeyRegistry) IsAction(msg tea.KeyMsg, action, scope string) bool {
	pressed := normalizeKey(msg.String())
	for _, b := range r.bindings {
		if b.Action != action || !scopeMatch(scope, b.Scopes) {
			continue
		}
		for _, k := range b.Keys {
			if normalizeKey(k) == pressed {
				return true
			}
		}
	}
	return false
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

func scopeMatch(scope string, scopes []string) bool {
	if len(scopes) == 0 {
		return true
	}
	for _, s := range scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

func switchTabAction(i int) string { return fmt.Sprintf("switch-tab-%d", i+1) }

func tabScope(title string) string { return "tab:" + title }

// DefaultKeyBindings binds the global keys plus one number key per tab.
func DefaultKeyBindings(tabs []Tab) []KeyBinding {
	out := []KeyBinding{
		{Keys: []string{"q", "ctrl+c"}, Action: actionQuit, Description: "quit", Scopes: []string{"*"}},
		{Keys: []string{"tab"}, Action: actionNextTab, Description: "next", Scopes: []string{"*"}},
		{Keys: []string{"shift+tab"}, Action: actionPrevTab, Description: "prev", Scopes: []string{"*"}},
		{Keys: []string{"backspace", "alt+left"}, Action: actionBack, Description: "back", Scopes: []string{"*"}},
		{Keys: []string{"alt+right"}, Action: actionForward, Description: "forward", Scopes: []string{"*"}},
		{Keys: []string{"r"}, Action: actionRefresh, Description: "refresh", Scopes: []string{"*"}},
		{Keys: []string{"-"}, Action: actionScaleDown, Description: "shorter window", Scopes: []string{"*"}},
		{Keys: []string{"+", "="}, Action: actionScaleUp, Description: "longer window", Scopes: []string{"*"}},
		{Keys: []string{"d"}, Action: actionToggleDevtools, Description: "devtools", Scopes: []string{"*"}},
		{Keys: []string{"esc"}, Action: actionClose, Description: "close", Scopes: []string{scopeDevtools}},
	}
	for i, t := range tabs {
		if i >= 9 {
			break
		}
		out = append(out, KeyBinding{
			Keys:        []string{fmt.Sprint(i + 1)},
			Action:      switchTabAction(i),
			Description: t.Title,
			Scopes:      []string{"*"},
		})
	}
	return out
}
