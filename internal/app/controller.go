package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"speselog/internal/core"
	"speselog/internal/log"
)

// Service is the part of the expense service the controller drives.
type Service interface {
	Add(ctx context.Context, r core.Record) error
	List(ctx context.Context) ([]core.Record, error)
	Delete(ctx context.Context, targets []core.Record) (int, error)
	MaybeReport(ctx context.Context) (*core.MonthlyReport, error)
	Today() string
}

// ErrAfterSave wraps failures that happen once the record is already in the
// log, such as a month-end total over a non-numeric amount.
var ErrAfterSave = errors.New("record saved")

// Controller applies user actions to a State.
type Controller struct {
	svc Service
}

func NewController(svc Service) *Controller {
	return &Controller{svc: svc}
}

// Init returns a loaded state with a fresh form.
func (c *Controller) Init(ctx context.Context) (*State, error) {
	s := NewState(c.svc.Today())
	if err := c.Load(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Load refreshes the record list and clears the selection.
func (c *Controller) Load(ctx context.Context, s *State) error {
	records, err := c.svc.List(ctx)
	if err != nil {
		s.Notice = err.Error()
		return err
	}
	s.Records = records
	s.Selected = make(map[int]bool)
	return nil
}

// Submit appends the form as a record, refreshes the list and checks for the
// month-end report.
//
// Choosing the Other category without a replacement sets Pending and returns
// core.ErrCategoryReplacementRequired; the shell should ask for the
// replacement and submit again. Validation errors leave the log untouched.
func (c *Controller) Submit(ctx context.Context, s *State) error {
	r, err := s.Form.Record()
	if err != nil {
		s.Pending = errors.Is(err, core.ErrCategoryReplacementRequired)
		s.Notice = err.Error()
		return err
	}

	if err := c.svc.Add(ctx, r); err != nil {
		s.Notice = err.Error()
		return err
	}

	s.Pending = false
	s.Form = NewForm(c.svc.Today())
	saved := fmt.Sprintf("Saved %s %s on %s", r.Amount, r.Category, r.Date)
	s.Notice = saved

	if err := c.Load(ctx, s); err != nil {
		s.Notice = saved + ", but the log could not be reloaded"
		return fmt.Errorf("%w: %w", ErrAfterSave, err)
	}
	if err := c.refreshReport(ctx, s); err != nil {
		s.Notice = saved + ", but the month total failed: " + err.Error()
		return fmt.Errorf("%w: %w", ErrAfterSave, err)
	}
	return nil
}

// DeleteSelected removes every row equal to a selected one and refreshes the list.
func (c *Controller) DeleteSelected(ctx context.Context, s *State) (int, error) {
	targets := s.SelectedRecords()
	if len(targets) == 0 {
		s.Notice = "Nothing selected"
		return 0, nil
	}

	removed, err := c.svc.Delete(ctx, targets)
	if err != nil {
		s.Notice = err.Error()
		return 0, err
	}
	s.Notice = fmt.Sprintf("Deleted %d record(s)", removed)

	if err := c.Load(ctx, s); err != nil {
		return removed, err
	}
	return removed, nil
}

// ToggleSelection flips the selection of a row.
func (c *Controller) ToggleSelection(s *State, i int) {
	s.ToggleSelection(i)
}

func (c *Controller) refreshReport(ctx context.Context, s *State) error {
	report, err := c.svc.MaybeReport(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Month end total failed",
			log.NewFields().WithOperation(log.OpReport).WithError(err).ToSlice()...)
		s.Notice = err.Error()
		return err
	}
	if report != nil {
		s.Report = report
	}
	return nil
}
