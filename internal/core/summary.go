package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthlyReport is the month-end announcement: the total of a month tagged
// with the month it belongs to.
type MonthlyReport struct {
	Month      YearMonth
	Total      decimal.Decimal
	Count      int
	ByCategory []CategoryAmount
}

// StoredReport is a monthly report as kept in the report history.
type StoredReport struct {
	MonthlyReport
	ReportedAt time.Time
}
