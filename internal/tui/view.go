package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/adminstate/internal/reducers"
)

func (m Model) View() string {
	if m.quitting {
		return "Goodbye\n"
	}
	header := renderHeader(m)
	status := renderStatusBar(m)
	footer := renderFooter(m)
	available := max(0, m.height-lipgloss.Height(header)-lipgloss.Height(status)-lipgloss.Height(footer))

	var body string
	if m.showDevtools {
		body = renderDevtools(m, available)
	} else {
		body = renderBody(m)
	}
	body = fitHeight(body, available)
	view := strings.Join([]string{header, status, body, footer}, "\n")
	view = fitHeight(view, max(1, m.height))
	return appStyle.Width(max(1, m.width)).MaxWidth(max(1, m.width)).Render(view)
}

func renderHeader(m Model) string {
	tabs := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		label := fmt.Sprintf("%d:%s", i+1, t.Title)
		if i == m.activeTab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}
	left := headerAppStyle.Render("Admin UI")
	right := tabSepStyle.Render(" ") + strings.Join(tabs, tabSepStyle.Render("│"))
	right = ansi.Truncate(right, max(1, m.width), "")
	leftW := ansi.StringWidth(left)
	rightW := ansi.StringWidth(right)
	gap := 1
	if leftW+rightW+1 < m.width {
		gap = m.width - leftW - rightW
	}
	return renderBar(headerBarStyle, max(1, m.width), left+strings.Repeat(" ", gap)+right, colorMantle)
}

func renderStatusBar(m Model) string {
	msg := strings.TrimSpace(m.status)
	if msg == "" {
		msg = "Ready"
	}
	where := "-"
	if loc := m.state.Routing.Location; loc != nil {
		where = loc.Path()
	}
	line := fmt.Sprintf("%s  [%s]  %s", where, m.state.TimeWindow.Scale.Name, msg)
	if m.statusErr {
		return renderBar(statusErrBarStyle, max(1, m.width), line, colorSurface0)
	}
	return renderBar(statusBarStyle, max(1, m.width), line, colorSurface0)
}

func renderFooter(m Model) string {
	bindings := m.keys.BindingsForScope(m.ActiveScope())
	bg := colorMantle
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Background(bg)
	descStyle := lipgloss.NewStyle().Foreground(colorMuted).Background(bg)
	space := lipgloss.NewStyle().Background(bg).Render(" ")
	sep := lipgloss.NewStyle().Background(bg).Render("  ")

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if len(b.Keys) == 0 {
			continue
		}
		kb := key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Description))
		h := kb.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+space+descStyle.Render(h.Desc))
	}
	line := strings.Join(parts, sep)
	if line == "" {
		line = lipgloss.NewStyle().Foreground(colorMuted).Background(bg).Render("No shortcuts")
	}
	return renderBar(footerStyle, max(1, m.width), line, bg)
}

func renderBody(m Model) string {
	if m.activeTab < 0 {
		return labelStyle.Render("No screen for this location.")
	}
	switch t := m.tabs[m.activeTab]; t.Title {
	case "overview":
		return renderOverview(m)
	case "metrics":
		return renderMetrics(m)
	case "settings":
		return renderSettings(m)
	default:
		return renderCached(m, t)
	}
}

func renderOverview(m Model) string {
	st := m.state
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Session") + "\n")
	login := string(st.Login.Status)
	if login == "" {
		login = string(reducers.LoggedOut)
	}
	if st.Login.Authenticated(m.now()) {
		login = okStyle.Render("logged in as " + st.Login.User)
	} else if st.Login.Err != "" {
		login = errStyle.Render(login + ": " + st.Login.Err)
	}
	b.WriteString("  " + login + "\n\n")

	tw := st.TimeWindow
	b.WriteString(sectionStyle.Render("Time window") + "\n")
	fmt.Fprintf(&b, "  %s %s  %s %s\n", labelStyle.Render("scale"), tw.Scale.Name, labelStyle.Render("sample"), tw.Scale.Sample)
	fmt.Fprintf(&b, "  %s → %s", tw.Window.Start.Format("15:04:05"), tw.Window.End.Format("15:04:05"))
	if tw.UseTimeRange {
		b.WriteString(pendingStyle.Render("  pinned"))
	}
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Queries") + "\n")
	if len(st.QueryManager) == 0 {
		b.WriteString(labelStyle.Render("  none running") + "\n")
	}
	for _, id := range sortedKeys(st.QueryManager) {
		q := st.QueryManager[id]
		line := fmt.Sprintf("  %-12s refs %d", id, q.AutoRefreshCount)
		switch {
		case q.IsRunning:
			line += pendingStyle.Render("  running")
		case q.LastError != "":
			line += errStyle.Render("  " + q.LastError)
		case !q.CompletedAt.IsZero():
			line += okStyle.Render("  " + q.CompletedAt.Format("15:04:05"))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderCached(m Model, t Tab) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(t.Title) + "\n")
	keys := make([]string, 0)
	for _, k := range sortedKeys(m.state.CachedData) {
		if t.Query == "" || k == t.Query || strings.HasPrefix(k, t.Query+"/") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		b.WriteString(labelStyle.Render("  no data yet"))
		return b.String()
	}
	for _, k := range keys {
		e := m.state.CachedData[k]
		state := okStyle.Render("valid")
		switch {
		case e.InFlight:
			state = pendingStyle.Render("loading")
		case e.Err != "":
			state = errStyle.Render(e.Err)
		case !e.Valid:
			state = labelStyle.Render("stale")
		}
		fmt.Fprintf(&b, "  %-16s %s\n", k, state)
		if e.Data != nil {
			b.WriteString(labelStyle.Render("    "+summarize(e.Data, 72)) + "\n")
		}
	}
	return b.String()
}

func renderMetrics(m Model) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Metrics") + "\n")
	if len(m.state.Metrics.Queries) == 0 {
		b.WriteString(labelStyle.Render("  no charts requested"))
		return b.String()
	}
	for _, id := range sortedKeys(m.state.Metrics.Queries) {
		q := m.state.Metrics.Queries[id]
		line := fmt.Sprintf("  %-16s", id)
		switch {
		case q.InFlight:
			line += pendingStyle.Render(" loading")
		case q.Err != "":
			line += errStyle.Render(" " + q.Err)
		default:
			line += " " + summarize(q.Data, 56)
		}
		b.WriteString(line + "\n")
	}
	if h := m.state.Hover; h.Active {
		fmt.Fprintf(&b, "\n  %s %s (%.2f, %.2f)\n", labelStyle.Render("hover"), h.Chart, h.X, h.Y)
	}
	return b.String()
}

func renderSettings(m Model) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Local settings") + "\n")
	if len(m.state.LocalSettings) == 0 {
		b.WriteString(labelStyle.Render("  none") + "\n")
	}
	for _, k := range sortedKeys(m.state.LocalSettings) {
		fmt.Fprintf(&b, "  %-20s %s\n", k, summarize(m.state.LocalSettings[k], 48))
	}
	b.WriteString("\n" + sectionStyle.Render("Saved UI data") + "\n")
	if len(m.state.UIData) == 0 {
		b.WriteString(labelStyle.Render("  none") + "\n")
	}
	for _, k := range sortedKeys(m.state.UIData) {
		e := m.state.UIData[k]
		status := string(e.Status)
		if e.Status == reducers.UIDataError {
			status = errStyle.Render(status + ": " + e.Err)
		}
		fmt.Fprintf(&b, "  %-20s %s\n", k, status)
	}
	return b.String()
}

func renderDevtools(m Model, height int) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Dispatched actions") + "\n")
	if m.recorder == nil {
		b.WriteString(labelStyle.Render("  devtools disabled"))
		return b.String()
	}
	records := m.recorder.Records()
	if len(records) == 0 {
		b.WriteString(labelStyle.Render("  nothing recorded"))
		return b.String()
	}
	rows := max(1, height-1)
	if len(records) > rows {
		records = records[len(records)-rows:]
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Fprintf(&b, "  %5d %s  %s\n", r.Seq, labelStyle.Render(r.At.Format("15:04:05.000")), r.Type)
	}
	return b.String()
}

func summarize(v any, width int) string {
	return ansi.Truncate(strings.ReplaceAll(fmt.Sprint(v), "\n", " "), width, "…")
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func renderBar(style lipgloss.Style, width int, text string, bg lipgloss.TerminalColor) string {
	line := strings.ReplaceAll(text, "\n", " ")
	line = ansi.Truncate(line, width, "")
	lineW := ansi.StringWidth(line)
	if lineW < width {
		line += strings.Repeat(" ", width-lineW)
	}
	return style.
		Background(bg).
		Width(width).
		MaxWidth(width).
		Render(line)
}

func fitHeight(s string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
