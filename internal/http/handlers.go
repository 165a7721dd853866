package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"speselog/internal/app"
	"speselog/internal/core"
	"speselog/internal/log"
)

type categoryOption struct {
	Name     string
	Selected bool
}

type rowView struct {
	Number  int
	Record  core.Record
	Value   string
	Checked bool
}

type categoryLine struct {
	Name   string
	Amount string
}

type reportView struct {
	Month      string
	Total      string
	Count      int
	ByCategory []categoryLine
}

type pageView struct {
	Form          app.FormInput
	Pending       bool
	Notice        string
	OtherCategory string
	Categories    []categoryOption
	Rows          []rowView
	Report        *reportView
}

func (s *Server) view(state *app.State) pageView {
	v := pageView{
		Form:          state.Form,
		Pending:       state.Pending,
		Notice:        state.Notice,
		OtherCategory: core.OtherCategory,
	}

	selected := state.Form.Category
	if selected == "" && len(s.categories) > 0 {
		selected = s.categories[0]
	}
	for _, c := range s.categories {
		v.Categories = append(v.Categories, categoryOption{Name: c, Selected: c == selected})
	}

	for i, r := range state.Records {
		v.Rows = append(v.Rows, rowView{
			Number:  i + 1,
			Record:  r,
			Value:   encodeRecord(r),
			Checked: state.Selected[i],
		})
	}

	if state.Report != nil {
		v.Report = s.reportView(*state.Report)
	}
	return v
}

func (s *Server) reportView(report core.MonthlyReport) *reportView {
	rv := &reportView{
		Month: report.Month.String(),
		Total: core.FormatMoney(report.Total, s.currency),
		Count: report.Count,
	}
	for _, c := range report.ByCategory {
		rv.ByCategory = append(rv.ByCategory, categoryLine{Name: c.Name, Amount: core.FormatMoney(c.Amount, s.currency)})
	}
	return rv
}

// render writes the whole page, or only the app fragment for HTMX requests.
func (s *Server) render(r *http.Request, state *app.State) ([]byte, error) {
	name := "index.html"
	if isHTMX(r) {
		name = "app"
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, s.view(state)); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// isUserError reports errors caused by what the user typed rather than by storage.
func isUserError(err error) bool {
	return errors.Is(err, core.ErrEmptyAmount) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, core.ErrCategoryReplacementRequired) ||
		errors.Is(err, core.ErrInvalidAmount)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := s.controller.Init(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load records", log.FieldError, err)
		InternalServerError("Could not read the expense log").Write(w)
		return
	}

	body, err := s.render(r, state)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to render page", log.FieldError, err)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form").Write(w)
		return
	}

	today := s.svc.Today()
	state := app.NewState(today)
	state.Form = ParseFormInput(r.PostForm, today)

	resp := NewHTMXResponse()
	err := s.controller.Submit(ctx, state)
	switch {
	case err == nil:
		resp.TriggerRecordsChanged(1).
			TriggerFormReset().
			TriggerSuccessNotification(state.Notice)
	case errors.Is(err, app.ErrAfterSave):
		logger.WarnContext(ctx, "Record saved but follow-up failed", log.FieldOperation, log.OpReport, log.FieldError, err)
		resp.TriggerRecordsChanged(1).
			TriggerFormReset().
			TriggerNotification(NotificationWarning, state.Notice, 5000)
	case isUserError(err):
		if state.Records == nil {
			// keep the table visible while the form shows the problem
			_ = s.controller.Load(ctx, state)
			state.Notice = err.Error()
		}
		resp.TriggerErrorNotification(err.Error())
		if !isHTMX(r) {
			resp.Status(http.StatusUnprocessableEntity)
		}
	default:
		logger.ErrorContext(ctx, "Failed to save record", log.FieldOperation, log.OpAppend, log.FieldError, err)
		InternalServerError("Could not save the record").Write(w)
		return
	}

	if state.Report != nil {
		resp.TriggerMonthlyReport(*state.Report, s.currency)
	}

	body, err := s.render(r, state)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to render page", log.FieldError, err)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form").Write(w)
		return
	}
	targets, err := ParseSelectedRecords(r.PostForm)
	if err != nil {
		BadRequestError("Invalid selection").Write(w)
		return
	}

	state, err := s.controller.Init(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load records", log.FieldError, err)
		InternalServerError("Could not read the expense log").Write(w)
		return
	}

	want := make(map[core.Record]struct{}, len(targets))
	for _, t := range targets {
		want[t] = struct{}{}
	}
	for i, rec := range state.Records {
		if _, ok := want[rec]; ok {
			s.controller.ToggleSelection(state, i)
		}
	}

	resp := NewHTMXResponse()
	removed, err := s.controller.DeleteSelected(ctx, state)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to delete records", log.FieldOperation, log.OpDelete, log.FieldError, err)
		InternalServerError("Could not delete the records").Write(w)
		return
	}
	if removed > 0 {
		resp.TriggerRecordsChanged(removed).TriggerSuccessNotification(state.Notice)
	} else {
		resp.TriggerNotification(NotificationInfo, state.Notice, 3000)
	}

	body, err := s.render(r, state)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to render page", log.FieldError, err)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	resp.BodyHTML(body).Write(w)
}

// reportJSON is a monthly report in the JSON API.
type reportJSON struct {
	Month      string             `json:"month"`
	Total      string             `json:"total"`
	Display    string             `json:"display"`
	Currency   string             `json:"currency"`
	Count      int                `json:"count"`
	ByCategory []categoryLineJSON `json:"by_category"`
	ReportedAt *time.Time         `json:"reported_at,omitempty"`
}

type categoryLineJSON struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

func (s *Server) toReportJSON(report core.MonthlyReport) reportJSON {
	out := reportJSON{
		Month:      report.Month.String(),
		Total:      report.Total.StringFixed(2),
		Display:    core.FormatMoney(report.Total, s.currency),
		Currency:   s.currency,
		Count:      report.Count,
		ByCategory: make([]categoryLineJSON, 0, len(report.ByCategory)),
	}
	for _, c := range report.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryLineJSON{Name: c.Name, Amount: c.Amount.StringFixed(2)})
	}
	return out
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := s.svc.List(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list records", log.FieldOperation, log.OpList, log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "could not read the expense log")
		return
	}
	out := make([]recordJSON, len(records))
	for i, rec := range records {
		out[i] = toRecordJSON(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := formInput(p.Get, s.svc.Today()).Record()
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.svc.Add(ctx, rec); err != nil {
		if isUserError(err) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.ErrorContext(ctx, "Failed to save record", log.FieldOperation, log.OpAppend, log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "could not save the record")
		return
	}

	resp := struct {
		Record recordJSON  `json:"record"`
		Report *reportJSON `json:"report,omitempty"`
	}{Record: toRecordJSON(rec.Canonical())}

	report, err := s.svc.MaybeReport(ctx)
	if err != nil {
		logger.WarnContext(ctx, "Month end total failed", log.FieldOperation, log.OpReport, log.FieldError, err)
	} else if report != nil {
		rj := s.toReportJSON(*report)
		resp.Report = &rj
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	targets, err := ParseRecordsBody(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid records: %v", err))
		return
	}

	removed, err := s.svc.Delete(ctx, targets)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, http.StatusNotFound, "expense log does not exist")
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Failed to delete records", log.FieldOperation, log.OpDelete, log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "could not delete the records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleAPITotal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ym, err := core.ParseYearMonth(r.PathValue("month"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	report, err := s.svc.MonthlyReport(ctx, ym)
	if err != nil {
		if isUserError(err) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		log.FromContext(ctx).ErrorContext(ctx, "Failed to compute total", log.FieldOperation, log.OpTotal, log.FieldYearMonth, ym.String(), log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "could not compute the total")
		return
	}
	writeJSON(w, http.StatusOK, s.toReportJSON(report))
}

func (s *Server) handleAPIReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "report history is not configured")
		return
	}

	stored, err := s.history.ListReports(ctx, ParseLimit(r.URL.Query(), 12))
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to list reports", log.FieldOperation, log.OpReport, log.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "could not read the report history")
		return
	}

	out := make([]reportJSON, len(stored))
	for i, sr := range stored {
		out[i] = s.toReportJSON(sr.MonthlyReport)
		at := sr.ReportedAt
		out[i].ReportedAt = &at
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the log and the report history can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.svc.List(ctx); err != nil {
		checks["expense_log"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["expense_log"] = "ok"
	}

	if s.history == nil {
		checks["report_history"] = "not_configured"
	} else if _, err := s.history.ListReports(ctx, 1); err != nil {
		checks["report_history"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["report_history"] = "ok"
	}

	checks["rate_limiter"] = map[string]int{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
