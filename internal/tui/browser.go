package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/rules"
)

// Action represents the action to take after browsing
type Action int

const (
	ActionNone Action = iota
	ActionSelect
	ActionQuit
)

// BrowserResult holds the result of the browser
type BrowserResult struct {
	Action Action
	Rule   *rules.Rule
}

// ruleItem implements list.Item for rule display
type ruleItem struct {
	rule rules.Rule
}

func (i ruleItem) Title() string {
	return i.rule.String()
}

func (i ruleItem) Description() string {
	port := "any port"
	if !i.rule.AnyPort() {
		port = "port " + i.rule.PortString()
	}
	return fmt.Sprintf("%s %s | %s | line %d",
		kindIcon(i.rule.Kind),
		i.rule.Kind,
		port,
		i.rule.Line,
	)
}

func (i ruleItem) FilterValue() string {
	return i.rule.Pattern
}

func kindIcon(k rules.Kind) string {
	switch k {
	case rules.KindWildcard:
		return "✱"
	case rules.KindDomainSuffix, rules.KindHost:
		return "◆"
	default:
		return "●"
	}
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Model is the bubbletea model for the rule browser
type Model struct {
	list     list.Model
	result   BrowserResult
	quitting bool
}

// NewBrowser creates a new rule browser
func NewBrowser(table *rules.Table) Model {
	items := buildGroupedItems(table.Rules)

	l := list.New(items, newGroupedDelegate(), 80, 20)
	l.Title = fmt.Sprintf("netblocker - %d rules (generation %d)", table.Len(), table.Generation)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(ruleItem); ok {
				r := item.rule
				m.result = BrowserResult{Action: ActionSelect, Rule: &r}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = BrowserResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		if isHeaderSelected(&m.list) {
			skipHeaders(&m.list, navigationDirection(msg))
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Select  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the browser result
func (m Model) Result() BrowserResult {
	return m.result
}

// RunBrowser runs the interactive rule browser
func RunBrowser(table *rules.Table) (BrowserResult, error) {
	if table.Len() == 0 {
		return BrowserResult{Action: ActionQuit}, nil
	}

	m := NewBrowser(table)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return BrowserResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// RenderRules is the non-interactive listing: one styled line per rule.
func RenderRules(rs []rules.Rule) string {
	var sb strings.Builder

	if len(rs) == 0 {
		sb.WriteString("No rules loaded. Everything is denied.\n")
		return sb.String()
	}

	for _, r := range rs {
		sb.WriteString(fmt.Sprintf("%4d  %s %s\n",
			r.Line, kindStyle.Render(r.Kind.String()), r.String()))
	}

	return sb.String()
}

// RenderBackfill lists the addresses each base domain resolved to, in the
// order given. Domains missing from resolved or that failed are marked.
func RenderBackfill(domains []string, resolved map[string]network.ResolvedHost) string {
	if len(domains) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n" + headerStyle.Render("Backfill") + "\n")
	for _, d := range domains {
		h, ok := resolved[d]
		switch {
		case !ok || h.Err != nil:
			sb.WriteString(fmt.Sprintf("  %s  %s\n", d, noteStyle.Render("lookup failed")))
		case len(h.IPs) == 0:
			sb.WriteString(fmt.Sprintf("  %s  %s\n", d, noteStyle.Render("no addresses")))
		default:
			sb.WriteString(fmt.Sprintf("  %s  %s\n", d, strings.Join(h.IPs, ", ")))
		}
	}
	return sb.String()
}

// RenderDetail renders a single rule for display after selection.
func RenderDetail(r rules.Rule) string {
	var sb strings.Builder
	sb.WriteString(selectedStyle.Render(r.String()) + "\n")
	sb.WriteString(fmt.Sprintf("  kind:  %s\n", r.Kind))
	sb.WriteString(fmt.Sprintf("  port:  %s\n", r.PortString()))
	sb.WriteString(fmt.Sprintf("  line:  %d\n", r.Line))
	switch r.Kind {
	case rules.KindDomainSuffix:
		sb.WriteString(fmt.Sprintf("  base:  %s (resolved for address backfill)\n", r.BaseDomain()))
	case rules.KindIP:
		sb.WriteString(fmt.Sprintf("  addr:  %s\n", r.Addr))
	case rules.KindCIDR:
		sb.WriteString(fmt.Sprintf("  net:   %s (%d of 128 bits)\n", r.Addr, r.Bits))
	}
	return sb.String()
}
