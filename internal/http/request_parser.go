// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request data into records and
// form input.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"speselog/internal/app"
	"speselog/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Form field names shared by the HTML form and the JSON API.
const (
	fieldAmount        = "amount"
	fieldCategory      = "category"
	fieldCategoryOther = "category_other"
	fieldDescription   = "description"
	fieldDate          = "date"
	fieldSelected      = "record"
)

// RequestBodyParser handles JSON and form-encoded bodies alike.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and keeps it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal([]byte(body), &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// formInput maps request fields onto the record form. An empty date means today.
func formInput(get func(string) string, today string) app.FormInput {
	in := app.FormInput{
		Amount:        get(fieldAmount),
		Category:      get(fieldCategory),
		CategoryOther: get(fieldCategoryOther),
		Description:   get(fieldDescription),
		Date:          get(fieldDate),
	}
	if in.Date == "" {
		in.Date = today
	}
	return in
}

// ParseFormInput reads the record form from a parsed HTML form.
func ParseFormInput(form url.Values, today string) app.FormInput {
	return formInput(func(k string) string { return sanitizeInput(form.Get(k)) }, today)
}

// ParseSelectedRecords decodes the checked rows of the record table.
func ParseSelectedRecords(form url.Values) ([]core.Record, error) {
	values := form[fieldSelected]
	out := make([]core.Record, 0, len(values))
	for _, v := range values {
		r, err := decodeRecord(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// recordJSON is a record in the JSON API.
type recordJSON struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func toRecordJSON(r core.Record) recordJSON {
	return recordJSON{Amount: r.Amount, Category: r.Category, Description: r.Description, Date: r.Date}
}

func (j recordJSON) record() core.Record {
	return core.Record{Amount: j.Amount, Category: j.Category, Description: j.Description, Date: j.Date}
}

var errNoRecords = errors.New("no records given")

// ParseRecordsBody decodes a JSON array of records, or an object with a
// "records" array.
func ParseRecordsBody(r *http.Request) ([]core.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return nil, errNoRecords
	}

	var items []recordJSON
	if body[0] == '[' {
		err = json.Unmarshal(body, &items)
	} else {
		var wrapped struct {
			Records []recordJSON `json:"records"`
		}
		err = json.Unmarshal(body, &wrapped)
		items = wrapped.Records
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoRecords
	}

	out := make([]core.Record, len(items))
	for i, it := range items {
		out[i] = it.record()
	}
	return out, nil
}

// ParseLimit reads a positive "limit" query parameter, falling back to def.
func ParseLimit(query url.Values, def int) int {
	if v := strings.TrimSpace(query.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
