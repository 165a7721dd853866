// Package tui is the terminal shell: a form, the record table and a modal for
// the month-end total.
package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"speselog/internal/app"
	"speselog/internal/core"
)

type focus int

const (
	focusAmount focus = iota
	focusCategory
	focusDescription
	focusDate
	focusTable
)

const focusCount = int(focusTable) + 1

// Model is the bubbletea model of the shell.
type Model struct {
	ctx        context.Context
	ctrl       *app.Controller
	state      *app.State
	categories []string
	currency   string

	focus     focus
	catIndex  int
	cursor    int
	prompting bool // asking for the Other replacement
	width     int
	quitting  bool
}

// New returns a model over an initialised state.
func New(ctx context.Context, ctrl *app.Controller, state *app.State, currency string) *Model {
	m := &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		state:      state,
		categories: core.DefaultCategories,
		currency:   currency,
	}
	m.state.Form.Category = m.categories[0]
	return m
}

// Run starts the terminal UI and blocks until the user quits.
func Run(ctx context.Context, ctrl *app.Controller, currency string) error {
	state, err := ctrl.Init(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	p := tea.NewProgram(New(ctx, ctrl, state, currency), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// State exposes the application state, mostly for tests.
func (m *Model) State() *app.State { return m.state }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch {
		case m.state.Report != nil:
			m.updateReport(msg)
		case m.prompting:
			m.updatePrompt(msg)
		case m.focus == focusTable:
			return m, m.updateTable(msg)
		default:
			m.updateForm(msg)
		}
	}
	return m, nil
}

func (m *Model) updateReport(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
		m.state.DismissReport()
	}
}

func (m *Model) updatePrompt(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.state.Pending = false
		m.state.Form.CategoryOther = ""
		m.state.Notice = "Category not replaced"
	case tea.KeyEnter:
		m.submit()
	case tea.KeyBackspace:
		m.state.Form.CategoryOther = dropLast(m.state.Form.CategoryOther)
	case tea.KeyRunes, tea.KeySpace:
		m.state.Form.CategoryOther += string(msg.Runes)
	}
}

func (m *Model) updateForm(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		m.focus = focus((int(m.focus) + 1) % focusCount)
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = focus((int(m.focus) + focusCount - 1) % focusCount)
	case tea.KeyEnter:
		m.submit()
	case tea.KeyLeft, tea.KeyRight:
		if m.focus == focusCategory {
			step := 1
			if msg.Type == tea.KeyLeft {
				step = len(m.categories) - 1
			}
			m.catIndex = (m.catIndex + step) % len(m.categories)
			m.state.Form.Category = m.categories[m.catIndex]
		}
	case tea.KeyBackspace:
		if f := m.field(); f != nil {
			*f = dropLast(*f)
		}
	case tea.KeyRunes, tea.KeySpace:
		if f := m.field(); f != nil {
			*f += string(msg.Runes)
		}
	}
}

func (m *Model) updateTable(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		m.quitting = true
		return tea.Quit
	case "tab":
		m.focus = focusAmount
	case "shift+tab":
		m.focus = focusDate
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Records)-1 {
			m.cursor++
		}
	case " ", "x":
		m.ctrl.ToggleSelection(m.state, m.cursor)
	case "d", "delete":
		_, _ = m.ctrl.DeleteSelected(m.ctx, m.state)
		m.clampCursor()
	case "r":
		_ = m.ctrl.Load(m.ctx, m.state)
		m.clampCursor()
	}
	return nil
}

func (m *Model) submit() {
	err := m.ctrl.Submit(m.ctx, m.state)
	m.prompting = m.state.Pending
	if m.state.Form.Category == "" {
		// a saved record resets the form; keep the selector's choice
		m.state.Form.Category = m.categories[m.catIndex]
	}
	if err == nil || errors.Is(err, app.ErrAfterSave) {
		m.focus = focusAmount
		m.clampCursor()
	}
}

// field returns the text field that has focus. The category is chosen from
// a list and has no text field.
func (m *Model) field() *string {
	switch m.focus {
	case focusAmount:
		return &m.state.Form.Amount
	case focusDescription:
		return &m.state.Form.Description
	case focusDate:
		return &m.state.Form.Date
	}
	return nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Records) {
		m.cursor = len(m.state.Records) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}
