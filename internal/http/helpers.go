package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"speselog/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// encodeRecord packs a record into a checkbox value so a row can be posted
// back for deletion by value.
func encodeRecord(r core.Record) string {
	return url.Values{
		"a": {r.Amount},
		"c": {r.Category},
		"m": {r.Description},
		"d": {r.Date},
	}.Encode()
}

func decodeRecord(s string) (core.Record, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return core.Record{}, err
	}
	return core.Record{
		Amount:      v.Get("a"),
		Category:    v.Get("c"),
		Description: v.Get("m"),
		Date:        v.Get("d"),
	}, nil
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
