// Package tui renders the dashboard view as a terminal UI.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"price-oracle-dashboard/internal/domain"
)

const RefreshInterval = 5 * time.Second

// ViewLoader fetches the latest published view, usually from Redis.
type ViewLoader interface {
	GetView(ctx context.Context) (*domain.DashboardView, error)
}

type tab int

const (
	tabPrices tab = iota
	tabMarket
	tabEvents
)

var tabNames = []string{"Prices", "Market", "Events"}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	activeTab    = lipgloss.NewStyle().Bold(true).Underline(true)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	positiveText = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	negativeText = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type viewMsg struct {
	view *domain.DashboardView
	err  error
}

type tickMsg time.Time

type Model struct {
	loader   ViewLoader
	username string
	view     *domain.DashboardView
	err      error
	tab      tab
	table    table.Model
	width    int
	height   int
	loadedAt time.Time
	now      func() time.Time
}

func NewModel(loader ViewLoader, username string) Model {
	t := table.New(table.WithFocused(true), table.WithHeight(10))
	m := Model{loader: loader, username: username, table: t, now: time.Now}
	m.syncTable()
	return m
}

// SetSize sets the terminal size before the first WindowSizeMsg arrives.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.resizeTable()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), tick())
}

func (m Model) load() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		view, err := loader.GetView(ctx)
		return viewMsg{view: view, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % tab(len(tabNames))
			m.syncTable()
			return m, nil
		case "shift+tab", "left", "h":
			m.tab = (m.tab + tab(len(tabNames)) - 1) % tab(len(tabNames))
			m.syncTable()
			return m, nil
		case "r":
			return m, m.load()
		}
	case tickMsg:
		return m, tea.Batch(m.load(), tick())
	case viewMsg:
		m.err = msg.err
		if msg.err == nil {
			m.view = msg.view
			m.loadedAt = m.now()
		}
		m.syncTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) resizeTable() {
	h := m.height - 14
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
	if m.width > 0 {
		m.table.SetWidth(m.width - 2)
	}
}

func (m *Model) syncTable() {
	var cols []table.Column
	var rows []table.Row
	switch m.tab {
	case tabPrices:
		cols = []table.Column{{Title: "Symbol", Width: 8}, {Title: "Price", Width: 14}, {Title: "Source", Width: 12}, {Title: "Oracle", Width: 14}, {Title: "Market", Width: 14}, {Title: "Flags", Width: 16}}
		if m.view != nil {
			for _, p := range m.view.Prices {
				rows = append(rows, table.Row{p.Symbol, p.Price, string(p.Source), dash(p.OraclePrice), dash(p.MarketPrice), priceFlags(p)})
			}
		}
	case tabMarket:
		cols = []table.Column{{Title: "Pair", Width: 10}, {Title: "Last", Width: 14}, {Title: "Contract", Width: 14}, {Title: "24h %", Width: 8}, {Title: "Volume", Width: 16}, {Title: "Bid", Width: 12}, {Title: "Ask", Width: 12}}
		if m.view != nil {
			for _, e := range m.view.Market {
				rows = append(rows, table.Row{e.Pair, e.LastPrice, e.ContractPrice, fmt.Sprintf("%+.2f", e.Change), e.Volume, e.Bid, e.Ask})
			}
		}
	case tabEvents:
		cols = []table.Column{{Title: "Symbol", Width: 10}, {Title: "Price", Width: 14}, {Title: "Crossed", Width: 8}, {Title: "Block", Width: 10}, {Title: "Tx", Width: 20}}
		if m.view != nil {
			for _, ev := range m.view.Events {
				rows = append(rows, table.Row{ev.Symbol, ev.Price, crossed(ev), fmt.Sprint(ev.BlockNumber), shorten(ev.TxHash)})
			}
		}
	}
	// Rows must be cleared before columns shrink, or the table indexes past them.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Price Oracle Dashboard"))
	if m.username != "" {
		b.WriteString(footerStyle.Render("  " + m.username))
	}
	b.WriteString("\n")

	switch {
	case m.view == nil && m.err != nil:
		b.WriteString(errStyle.Render("waiting for dashboard data: " + m.err.Error()))
		b.WriteString("\n")
	case m.view == nil:
		b.WriteString("loading...\n")
	default:
		b.WriteString(m.thresholdPanel())
		b.WriteString("\n")
	}

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if tab(i) == m.tab {
			tabs[i] = activeTab.Render(name)
		} else {
			tabs[i] = inactiveTab.Render(name)
		}
	}
	b.WriteString(strings.Join(tabs, "  "))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if m.view != nil && m.tab == tabMarket {
		b.WriteString(rankings(m.view.Rankings))
		b.WriteString("\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) thresholdPanel() string {
	v := m.view
	state := warnStyle.Render("inactive")
	if v.Threshold.Active {
		state = okStyle.Render("active")
	}
	mint := errStyle.Render("mint blocked")
	if v.MintAllowed {
		mint = okStyle.Render("mint allowed")
	}
	price := domain.ZeroPrice
	if p, ok := v.Price(v.MintSymbol); ok {
		price = p.Price
	}
	lines := []string{
		fmt.Sprintf("%s %s  threshold %s (%s)  %s", v.MintSymbol, price, v.Threshold.Value, state, mint),
	}
	if v.OracleDegraded {
		lines = append(lines, warnStyle.Render("oracle degraded: "+v.OracleDegradedReason))
	}
	if v.MarketDegraded {
		lines = append(lines, warnStyle.Render("market degraded: "+v.MarketDegradedReason))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) footer() string {
	parts := []string{"tab switch", "r reload", "q quit"}
	if !m.loadedAt.IsZero() {
		parts = append(parts, "updated "+m.loadedAt.Format("15:04:05"))
	}
	if m.view != nil && m.err != nil {
		parts = append(parts, errStyle.Render("refresh failed: "+m.err.Error()))
	}
	return footerStyle.Render(strings.Join(parts, " | "))
}

func rankings(r domain.Rankings) string {
	var parts []string
	for _, e := range r.TopVolume {
		parts = append(parts, fmt.Sprintf("top volume %s %s", e.Symbol, e.Volume))
	}
	if e := r.BiggestIncrease; e != nil {
		parts = append(parts, positiveText.Render(fmt.Sprintf("up %s %+.2f%%", e.Symbol, e.Change)))
	}
	if e := r.BiggestDecrease; e != nil {
		parts = append(parts, negativeText.Render(fmt.Sprintf("down %s %+.2f%%", e.Symbol, e.Change)))
	}
	return strings.Join(parts, "  ")
}

func priceFlags(p domain.ViewPrice) string {
	var flags []string
	if p.AlertHigh() {
		flags = append(flags, "above-high")
	}
	if p.AlertLow() {
		flags = append(flags, "below-low")
	}
	if p.Stale {
		flags = append(flags, "stale")
	}
	return strings.Join(flags, ",")
}

func crossed(ev domain.ThresholdEvent) string {
	switch {
	case ev.CrossedHigh:
		return "high"
	case ev.CrossedLow:
		return "low"
	}
	return "-"
}

func dash(s string) string {
	if s == "" {
		return domain.Placeholder
	}
	return s
}

func shorten(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-4:]
}
