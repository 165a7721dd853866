package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"speselog/internal/core"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle    = lipgloss.NewStyle().Width(13)
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(1, 3)
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.state.Report != nil {
		return m.reportView(*m.state.Report)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("speselog"))
	b.WriteString("\n\n")
	b.WriteString(m.formView())
	b.WriteString("\n")
	b.WriteString(m.tableView())
	if m.state.Notice != "" {
		b.WriteString("\n")
		b.WriteString(noticeStyle.Render(m.state.Notice))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help()))
	return b.String()
}

func (m *Model) formView() string {
	form := m.state.Form
	rows := []struct {
		f     focus
		label string
		value string
	}{
		{focusAmount, "Amount", form.Amount},
		{focusCategory, "Category", "< " + form.Category + " >"},
		{focusDescription, "Description", form.Description},
		{focusDate, "Date", form.Date},
	}

	var b strings.Builder
	for _, r := range rows {
		label := labelStyle.Render(r.label)
		value := r.value
		if r.f == m.focus && !m.prompting {
			label = focusedStyle.Render(labelStyle.Render(r.label))
			value += "_"
		}
		b.WriteString(label + value + "\n")
	}
	if m.prompting {
		b.WriteString(focusedStyle.Render(labelStyle.Render("Other")) + form.CategoryOther + "_\n")
	}
	return b.String()
}

func (m *Model) tableView() string {
	if len(m.state.Records) == 0 {
		return mutedStyle.Render("No records.") + "\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("   %10s  %-14s %-24s %s", "Amount", "Category", "Description", "Date")
	b.WriteString(mutedStyle.Render(header) + "\n")
	for i, r := range m.state.Records {
		mark := " "
		if m.state.Selected[i] {
			mark = "*"
		}
		line := fmt.Sprintf("%s  %10s  %-14s %-24s %s", mark, r.Amount, truncate(r.Category, 14), truncate(r.Description, 24), r.Date)
		switch {
		case m.focus == focusTable && i == m.cursor:
			line = cursorStyle.Render(line)
		case m.state.Selected[i]:
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m *Model) reportView(report core.MonthlyReport) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Total for "+report.Month.String()) + "\n\n")
	b.WriteString(fmt.Sprintf("%s over %d record(s)\n", core.FormatMoney(report.Total, m.currency), report.Count))
	if len(report.ByCategory) > 0 {
		b.WriteString("\n")
		for _, c := range report.ByCategory {
			b.WriteString(fmt.Sprintf("%-16s %12s\n", c.Name, core.FormatMoney(c.Amount, m.currency)))
		}
	}
	b.WriteString("\n" + mutedStyle.Render("enter to close"))
	return modalStyle.Render(b.String())
}

func (m *Model) help() string {
	switch {
	case m.prompting:
		return "type the category · enter save · esc cancel"
	case m.focus == focusTable:
		return "↑/↓ move · space select · d delete selected · r reload · tab form · q quit"
	default:
		return "tab next field · ←/→ category · enter save · ctrl+c quit"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
