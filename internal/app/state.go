// Package app holds the state a presentation shell owns and the controller
// that applies user actions to it.
package app

import (
	"sort"
	"strings"

	"speselog/internal/core"
)

// FormInput is the record being entered.
type FormInput struct {
	Amount        string
	Category      string
	CategoryOther string // replacement text when Category is the Other sentinel
	Description   string
	Date          string
}

// NewForm returns an empty form dated today.
func NewForm(today string) FormInput {
	return FormInput{Date: today}
}

// NeedsReplacement reports whether the Other sentinel is selected without a
// replacement category.
func (f FormInput) NeedsReplacement() bool {
	return strings.TrimSpace(f.Category) == core.OtherCategory && strings.TrimSpace(f.CategoryOther) == ""
}

// Record turns the form into a record. Required fields are checked first,
// then the category sentinel is resolved.
func (f FormInput) Record() (core.Record, error) {
	r := core.Record{
		Amount:      f.Amount,
		Category:    f.Category,
		Description: f.Description,
		Date:        f.Date,
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	category, err := core.ResolveCategory(f.Category, f.CategoryOther)
	if err != nil {
		return core.Record{}, err
	}
	r.Category = category
	return r, nil
}

// State is everything a shell renders.
type State struct {
	Form     FormInput
	Records  []core.Record
	Selected map[int]bool
	// Pending is set while the form waits for a replacement category.
	Pending bool
	// Report is the month-end total to show in a modal, if any.
	Report *core.MonthlyReport
	Notice string
}

// NewState returns an empty state with a form dated today.
func NewState(today string) *State {
	return &State{
		Form:     NewForm(today),
		Selected: make(map[int]bool),
	}
}

// ToggleSelection flips the selection of the row at index i. Out of range
// indexes are ignored.
func (s *State) ToggleSelection(i int) {
	if i < 0 || i >= len(s.Records) {
		return
	}
	if s.Selected == nil {
		s.Selected = make(map[int]bool)
	}
	if s.Selected[i] {
		delete(s.Selected, i)
		return
	}
	s.Selected[i] = true
}

// SelectedRecords returns the selected rows in list order.
func (s *State) SelectedRecords() []core.Record {
	idx := make([]int, 0, len(s.Selected))
	for i := range s.Selected {
		if i >= 0 && i < len(s.Records) {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)

	out := make([]core.Record, len(idx))
	for n, i := range idx {
		out[n] = s.Records[i]
	}
	return out
}

// DismissReport closes the month-end modal.
func (s *State) DismissReport() {
	s.Report = nil
}
