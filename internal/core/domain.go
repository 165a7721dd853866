package core

import (
	"errors"
	"fmt"
	"strings"
)

// OtherCategory is the sentinel category that asks the user for a free-text
// replacement before the record is complete.
const OtherCategory = "Other"

type (
	// Record is one logged expense. Every field is kept as the text the caller
	// supplied, except that CRLF line breaks are stored as LF (see Canonical).
	Record struct {
		Amount      string
		Category    string
		Description string
		Date        string // YYYY-MM-DD
	}
)

// Header is the fixed first row of every log file.
var Header = []string{"Amount", "Category", "Description", "Date"}

// DefaultCategories is offered by the shells when no list is configured.
var DefaultCategories = []string{
	"Food",
	"Transport",
	"Housing",
	"Utilities",
	"Entertainment",
	"Health",
	OtherCategory,
}

var (
	ErrEmptyAmount                 = errors.New("amount is required")
	ErrEmptyCategory               = errors.New("category is required")
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrMalformedRow                = errors.New("malformed row")
	ErrCategoryReplacementRequired = errors.New("a custom category is required when Other is selected")
)

// Validate rejects records missing a required field. It runs before any file
// operation so a rejected record never changes the log.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Amount) == "" {
		return ErrEmptyAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Fields returns the record in header column order.
func (r Record) Fields() []string {
	return []string{r.Amount, r.Category, r.Description, r.Date}
}

// RecordFromFields builds a record from a data row.
func RecordFromFields(fields []string) (Record, error) {
	if len(fields) != len(Header) {
		return Record{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRow, len(Header), len(fields))
	}
	return Record{
		Amount:      fields[0],
		Category:    fields[1],
		Description: fields[2],
		Date:        fields[3],
	}, nil
}

// Equal reports field-for-field textual equality.
func (r Record) Equal(other Record) bool {
	return r == other
}

// Canonical returns r with every CRLF inside a field folded to LF. This is the
// form a record has after a trip through the log, so it is the form that is
// written and the form that is matched on delete.
func (r Record) Canonical() Record {
	return Record{
		Amount:      foldCRLF(r.Amount),
		Category:    foldCRLF(r.Category),
		Description: foldCRLF(r.Description),
		Date:        foldCRLF(r.Date),
	}
}

func foldCRLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ResolveCategory applies the Other sentinel: when it is selected the
// replacement text becomes the category.
func ResolveCategory(selected, replacement string) (string, error) {
	selected = strings.TrimSpace(selected)
	if selected != OtherCategory {
		return selected, nil
	}
	replacement = strings.TrimSpace(replacement)
	if replacement == "" {
		return "", ErrCategoryReplacementRequired
	}
	return replacement, nil
}
