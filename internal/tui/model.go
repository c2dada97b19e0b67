// Package tui is a terminal front end over the admin UI store. Tabs are
// routes: switching tabs dispatches a navigation push and the active tab is
// whatever the routing slice says.
package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/adminstate/internal/adminui"
	"github.com/jask/adminstate/internal/devtools"
	"github.com/jask/adminstate/internal/navigation"
	"github.com/jask/adminstate/internal/reducers"
	"github.com/jask/adminstate/internal/store"
)

// Store is what the model drives. *adminui.Handle satisfies it.
type Store interface {
	Dispatch(store.Action) (store.Action, error)
	GetState() *store.State
	Subscribe(store.Listener) func()
}

// Tab is a screen bound to a route. Query, when set, is kept auto-refreshing
// while the tab is active.
type Tab struct {
	Title string
	Path  string
	Query string
}

var DefaultTabs = []Tab{
	{Title: "overview", Path: "/overview"},
	{Title: "nodes", Path: "/nodes", Query: "nodes"},
	{Title: "jobs", Path: "/jobs", Query: "jobs"},
	{Title: "metrics", Path: "/metrics"},
	{Title: "settings", Path: "/settings"},
}

type Options struct {
	Tabs     []Tab
	Keys     []KeyBinding
	Recorder *devtools.Recorder
	Now      func() time.Time
}

type Model struct {
	store       Store
	keys        *KeyRegistry
	tabs        []Tab
	recorder    *devtools.Recorder
	now         func() time.Time
	updates     chan *store.State
	unsubscribe func()

	state     adminui.State
	activeTab int

	width        int
	height       int
	status       string
	statusErr    bool
	showDevtools bool
	quitting     bool
}

type stateMsg struct {
	st *store.State
}

// New subscribes to s. Quitting through the keys unsubscribes; otherwise call
// Close.
func New(s Store, opts Options) Model {
	tabs := opts.Tabs
	if len(tabs) == 0 {
		tabs = DefaultTabs
	}
	bindings := opts.Keys
	if len(bindings) == 0 {
		bindings = DefaultKeyBindings(tabs)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := Model{
		store:     s,
		keys:      NewKeyRegistry(bindings),
		tabs:      tabs,
		recorder:  opts.Recorder,
		now:       now,
		updates:   make(chan *store.State, 1),
		activeTab: -1,
		width:     80,
		height:    24,
	}
	m.unsubscribe = s.Subscribe(m.offer)
	m = m.applyState(s.GetState())
	return m
}

// offer hands st to the model, replacing a snapshot not yet picked up.
func (m Model) offer(st *store.State) {
	for {
		select {
		case m.updates <- st:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func waitForState(ch <-chan *store.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{st: st}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) ActiveScope() string {
	if m.showDevtools {
		return scopeDevtools
	}
	if m.activeTab >= 0 {
		return tabScope(m.tabs[m.activeTab].Title)
	}
	return "*"
}

// ActiveTab is the index of the tab matching the current route, or -1.
func (m Model) ActiveTab() int { return m.activeTab }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case stateMsg:
		m = m.applyState(msg.st)
		return m, waitForState(m.updates)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) applyState(st *store.State) Model {
	m.state = adminui.Snapshot(st)
	prev := m.activeTab
	m.activeTab = m.tabFor(m.state.Routing.Location)
	if prev == m.activeTab {
		return m
	}
	if prev >= 0 && m.tabs[prev].Query != "" {
		m = m.dispatch(reducers.StopAutoRefresh{ID: m.tabs[prev].Query})
	}
	if m.activeTab >= 0 && m.tabs[m.activeTab].Query != "" {
		m = m.dispatch(reducers.AutoRefresh{ID: m.tabs[m.activeTab].Query})
	}
	return m
}

func (m Model) tabFor(loc *navigation.Location) int {
	if loc == nil {
		return -1
	}
	first := firstSegment(loc.Pathname)
	for i, t := range m.tabs {
		if first != "" && firstSegment(t.Path) == first {
			return i
		}
	}
	return -1
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	scope := m.ActiveScope()
	switch {
	case m.keys.IsAction(msg, actionQuit, scope):
		m.quitting = true
		m.Close()
		return m, tea.Quit
	case m.keys.IsAction(msg, actionClose, scope):
		m.showDevtools = false
		return m, nil
	case m.keys.IsAction(msg, actionToggleDevtools, scope):
		m.showDevtools = !m.showDevtools
		return m, nil
	case m.keys.IsAction(msg, actionNextTab, scope):
		return m.switchTab(m.activeTab + 1), nil
	case m.keys.IsAction(msg, actionPrevTab, scope):
		if m.activeTab < 0 {
			return m.switchTab(len(m.tabs) - 1), nil
		}
		return m.switchTab(m.activeTab - 1), nil
	case m.keys.IsAction(msg, actionBack, scope):
		return m.dispatch(navigation.Back()), nil
	case m.keys.IsAction(msg, actionForward, scope):
		return m.dispatch(navigation.Forward()), nil
	case m.keys.IsAction(msg, actionRefresh, scope):
		return m.refresh(), nil
	case m.keys.IsAction(msg, actionScaleDown, scope):
		return m.stepScale(-1), nil
	case m.keys.IsAction(msg, actionScaleUp, scope):
		return m.stepScale(1), nil
	}
	for i := range m.tabs {
		if m.keys.IsAction(msg, switchTabAction(i), scope) {
			return m.switchTab(i), nil
		}
	}
	return m, nil
}

func (m Model) switchTab(i int) Model {
	if len(m.tabs) == 0 {
		return m
	}
	i = (i%len(m.tabs) + len(m.tabs)) % len(m.tabs)
	return m.dispatch(navigation.Push(m.tabs[i].Path))
}

func (m Model) refresh() Model {
	m = m.dispatch(reducers.InvalidateAllData{})
	for _, id := range sortedKeys(m.state.QueryManager) {
		m = m.dispatch(reducers.RefreshQuery{ID: id})
	}
	if !m.statusErr {
		m.status = "Refreshing"
	}
	return m
}

func (m Model) stepScale(delta int) Model {
	idx := 0
	for i, s := range reducers.TimeScales {
		if s.Name == m.state.TimeWindow.Scale.Name {
			idx = i
			break
		}
	}
	idx = min(max(idx+delta, 0), len(reducers.TimeScales)-1)
	m = m.dispatch(reducers.SetTimeScale{Scale: reducers.TimeScales[idx]})
	if !m.statusErr {
		m.status = "Window " + reducers.TimeScales[idx].Name
	}
	return m
}

// dispatch runs a on the store and folds the outcome into the status bar.
// The snapshot is read back at once so keys chain without waiting for the
// subscription.
func (m Model) dispatch(a store.Action) Model {
	if _, err := m.store.Dispatch(a); err != nil {
		m.status = err.Error()
		m.statusErr = true
		return m
	}
	m.status = ""
	m.statusErr = false
	return m.applyState(m.store.GetState())
}
