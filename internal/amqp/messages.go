package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"speselog/internal/core"
)

// EventType names the change an Event announces.
type EventType string

const (
	EventRecordAppended EventType = "record.appended"
	EventRecordsDeleted EventType = "records.deleted"
	EventMonthlyReport  EventType = "report.monthly"
)

// RecordPayload is a record on the wire.
type RecordPayload struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// CategoryPayload is one line of a report breakdown.
type CategoryPayload struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// ReportPayload is a monthly report on the wire. Amounts travel as decimal text.
type ReportPayload struct {
	Month      string            `json:"month"`
	Total      string            `json:"total"`
	Count      int               `json:"count"`
	ByCategory []CategoryPayload `json:"by_category,omitempty"`
}

// Event is the single message shape published on the exchange.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Records   []RecordPayload `json:"records,omitempty"`
	Removed   int             `json:"removed,omitempty"`
	Report    *ReportPayload  `json:"report,omitempty"`
}

func recordPayload(r core.Record) RecordPayload {
	return RecordPayload{Amount: r.Amount, Category: r.Category, Description: r.Description, Date: r.Date}
}

// Record converts the payload back to a core record.
func (p RecordPayload) Record() core.Record {
	return core.Record{Amount: p.Amount, Category: p.Category, Description: p.Description, Date: p.Date}
}

// NewRecordAppendedEvent announces an appended record.
func NewRecordAppendedEvent(r core.Record, at time.Time) *Event {
	return &Event{
		Type:      EventRecordAppended,
		Timestamp: at,
		Records:   []RecordPayload{recordPayload(r)},
	}
}

// NewRecordsDeletedEvent announces a delete-matching request and how many rows it removed.
func NewRecordsDeletedEvent(targets []core.Record, removed int, at time.Time) *Event {
	payload := make([]RecordPayload, len(targets))
	for i, r := range targets {
		payload[i] = recordPayload(r)
	}
	return &Event{
		Type:      EventRecordsDeleted,
		Timestamp: at,
		Records:   payload,
		Removed:   removed,
	}
}

// NewMonthlyReportEvent announces a month-end total.
func NewMonthlyReportEvent(report core.MonthlyReport, at time.Time) *Event {
	p := &ReportPayload{
		Month: report.Month.String(),
		Total: report.Total.String(),
		Count: report.Count,
	}
	for _, c := range report.ByCategory {
		p.ByCategory = append(p.ByCategory, CategoryPayload{Name: c.Name, Amount: c.Amount.String()})
	}
	return &Event{
		Type:      EventMonthlyReport,
		Timestamp: at,
		Report:    p,
	}
}

// MonthlyReport converts a report payload back to a core report.
func (p ReportPayload) MonthlyReport() (core.MonthlyReport, error) {
	ym, err := core.ParseYearMonth(p.Month)
	if err != nil {
		return core.MonthlyReport{}, err
	}
	total, err := decimal.NewFromString(p.Total)
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("parse report total %q: %w", p.Total, err)
	}
	report := core.MonthlyReport{Month: ym, Total: total, Count: p.Count}
	for _, c := range p.ByCategory {
		amount, err := decimal.NewFromString(c.Amount)
		if err != nil {
			return core.MonthlyReport{}, fmt.Errorf("parse amount of category %q: %w", c.Name, err)
		}
		report.ByCategory = append(report.ByCategory, core.CategoryAmount{Name: c.Name, Amount: amount})
	}
	return report, nil
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON deserializes an event and checks its type.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventRecordAppended, EventRecordsDeleted:
	case EventMonthlyReport:
		if e.Report == nil {
			return nil, fmt.Errorf("event %s without report", e.Type)
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
	return &e, nil
}
