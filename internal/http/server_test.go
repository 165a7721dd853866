package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"speselog/internal/core"
	"speselog/internal/ledger"
	"speselog/internal/log"
	"speselog/internal/middleware/ratelimit"
	"speselog/internal/services"
)

type testEnv struct {
	srv     *Server
	log     *ledger.Log
	history *services.MemoryHistory
}

func newTestServer(t *testing.T, now time.Time, limit ratelimit.Config) *testEnv {
	t.Helper()
	lg := ledger.Open(filepath.Join(t.TempDir(), "expenses.csv"))
	svc := services.NewExpenseService(lg, nil, nil, func() time.Time { return now })
	history := services.NewMemoryHistory()

	srv, err := NewServer(":0", Deps{
		Service:   svc,
		History:   history,
		Logger:    log.New(log.Config{Output: &strings.Builder{}}),
		Currency:  "EUR",
		RateLimit: limit,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{srv: srv, log: lg, history: history}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func formPost(path string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func (e *testEnv) records(t *testing.T) []core.Record {
	t.Helper()
	recs, err := e.log.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return recs
}

var midMay = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

func TestIndexAndHealth(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"<h1>Expenses</h1>", "No records.", `value="2024-05-15"`, `<option value="Food" selected>`} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Errorf("security headers not applied")
	}

	for _, path := range []string{"/healthz", "/readyz", "/static/style.css"} {
		rr := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", rr.Code)
	}
}

func TestSubmitRecord(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	form := url.Values{"amount": {"12.50"}, "category": {"Food"}, "description": {"lunch"}, "date": {"2024-05-14"}}
	rr := env.do(t, formPost("/records", form, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	if strings.Contains(body, "<html") || !strings.Contains(body, `id="app"`) {
		t.Errorf("HTMX request should get the app fragment only")
	}
	if !strings.Contains(body, "lunch") || !strings.Contains(body, "Saved 12.50 Food on 2024-05-14") {
		t.Errorf("fragment missing new row or notice: %s", body)
	}
	if trig := rr.Header().Get("HX-Trigger"); !strings.Contains(trig, "records:changed") || strings.Contains(trig, "report:monthly") {
		t.Errorf("unexpected HX-Trigger %s", trig)
	}

	got := env.records(t)
	want := core.Record{Amount: "12.50", Category: "Food", Description: "lunch", Date: "2024-05-14"}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("log = %+v", got)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	rr := env.do(t, formPost("/records", url.Values{"category": {"Food"}}, false))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for plain form post, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), core.ErrEmptyAmount.Error()) {
		t.Errorf("page should show the validation message")
	}

	rr = env.do(t, formPost("/records", url.Values{"amount": {"3"}, "category": {" "}}, true))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Fatalf("HTMX validation error: status=%d trigger=%s", rr.Code, rr.Header().Get("HX-Trigger"))
	}

	if recs := env.records(t); len(recs) != 0 {
		t.Fatalf("rejected submits must not write, got %+v", recs)
	}
}

func TestSubmitOtherCategory(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	form := url.Values{"amount": {"20"}, "category": {"Other"}, "date": {"2024-05-10"}}
	rr := env.do(t, formPost("/records", form, true))
	if !strings.Contains(rr.Body.String(), "other pending") {
		t.Fatalf("form should ask for a custom category: %s", rr.Body.String())
	}
	if len(env.records(t)) != 0 {
		t.Fatalf("nothing should be written before the replacement is given")
	}

	form.Set("category_other", "Gifts")
	rr = env.do(t, formPost("/records", form, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	recs := env.records(t)
	if len(recs) != 1 || recs[0].Category != "Gifts" {
		t.Fatalf("log = %+v", recs)
	}
}

func TestSubmitOnMonthEndShowsReport(t *testing.T) {
	env := newTestServer(t, time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC), ratelimit.Config{})

	for _, amount := range []string{"10.50", "5"} {
		form := url.Values{"amount": {amount}, "category": {"Food"}}
		rr := env.do(t, formPost("/records", form, true))
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(rr.Header().Get("HX-Trigger"), "report:monthly") {
			t.Errorf("expected report trigger on month end")
		}
		if !strings.Contains(rr.Body.String(), "Total for 2024-05") {
			t.Errorf("expected report dialog")
		}
	}

	rr := env.do(t, formPost("/records", url.Values{"amount": {"1"}, "category": {"Food"}}, true))
	if !strings.Contains(rr.Body.String(), "€16.50") {
		t.Errorf("report should include every record of the month: %s", rr.Body.String())
	}
}

func TestSubmitOnMonthEndWithBadAmountIsSaved(t *testing.T) {
	env := newTestServer(t, time.Date(2024, 5, 31, 20, 0, 0, 0, time.UTC), ratelimit.Config{})
	if err := env.log.Append(context.Background(), core.Record{Amount: "abc", Category: "Food", Date: "2024-05-02"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := env.do(t, formPost("/records", url.Values{"amount": {"4"}, "category": {"Food"}}, false))
	if rr.Code != http.StatusOK {
		t.Fatalf("saved record must not be reported as rejected, status=%d", rr.Code)
	}
	trig := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trig, "records:changed") || !strings.Contains(trig, `"type":"warning"`) {
		t.Errorf("unexpected HX-Trigger %s", trig)
	}
	if !strings.Contains(rr.Body.String(), "month total failed") {
		t.Errorf("page should explain the failed total: %s", rr.Body.String())
	}
	if recs := env.records(t); len(recs) != 2 {
		t.Fatalf("log = %+v", recs)
	}
}

func TestAPIAddCanonicalisesLineBreaks(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	body := `{"amount":"2","category":"Food","description":"a\r\nb","date":"2024-05-03"}`
	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := env.do(t, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/records", strings.NewReader("["+body+"]"))
	req.Header.Set("Content-Type", "application/json")
	rr = env.do(t, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"removed":1`) {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}
	if recs := env.records(t); len(recs) != 0 {
		t.Fatalf("log = %+v", recs)
	}
}

func TestDeleteSelected(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})
	ctx := context.Background()

	dup := core.Record{Amount: "3", Category: "Food", Description: "coffee", Date: "2024-05-02"}
	keep := core.Record{Amount: "9", Category: "Transport", Date: "2024-05-03"}
	for _, r := range []core.Record{dup, keep, dup} {
		if err := env.log.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rr := env.do(t, formPost("/records/delete", url.Values{"record": {encodeRecord(dup)}}, true))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Deleted 2 record(s)") {
		t.Errorf("missing notice: %s", rr.Body.String())
	}
	if recs := env.records(t); len(recs) != 1 || recs[0] != keep {
		t.Fatalf("log = %+v", recs)
	}

	rr = env.do(t, formPost("/records/delete", url.Values{}, true))
	if !strings.Contains(rr.Body.String(), "Nothing selected") {
		t.Errorf("empty selection should be reported")
	}
}

func TestAPI(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return env.do(t, req)
	}

	if rr := post(`{"amount":"10.50","category":"Food","date":"2024-05-01"}`); rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := post(`{"amount":"5","category":"Other","category_other":"Books"}`); rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := post(`{"category":"Food"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if rr := post(`{"amount":"5","category":"Other"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for Other without replacement, got %d", rr.Code)
	}

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/records", nil))
	var listed []recordJSON
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 2 || listed[1].Category != "Books" || listed[1].Date != "2024-05-15" {
		t.Fatalf("listed %+v", listed)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/totals/2024-05", nil))
	var total reportJSON
	if err := json.NewDecoder(rr.Body).Decode(&total); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if total.Total != "15.50" || total.Count != 2 || total.Currency != "EUR" {
		t.Fatalf("total %+v", total)
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/totals/May", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/records", strings.NewReader(`[{"amount":"10.50","category":"Food","description":"","date":"2024-05-01"}]`))
	rr = env.do(t, req)
	var deleted map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&deleted); err != nil || deleted["removed"] != 1 {
		t.Fatalf("delete response %v, %v", deleted, err)
	}
}

func TestAPIReports(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{})
	ctx := context.Background()
	at := time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC)
	if _, err := env.history.SaveReport(ctx, core.MonthlyReport{Month: core.YearMonth{Year: 2024, Month: time.April}}, at); err != nil {
		t.Fatalf("save: %v", err)
	}

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/reports?limit=5", nil))
	var reports []reportJSON
	if err := json.NewDecoder(rr.Body).Decode(&reports); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(reports) != 1 || reports[0].Month != "2024-04" || reports[0].ReportedAt == nil || !reports[0].ReportedAt.Equal(at) {
		t.Fatalf("reports %+v", reports)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestServer(t, midMay, ratelimit.Config{RequestsPerMinute: 1})

	form := url.Values{"amount": {"1"}, "category": {"Food"}}
	if rr := env.do(t, formPost("/records", form, true)); rr.Code != http.StatusOK {
		t.Fatalf("first write status=%d", rr.Code)
	}
	if rr := env.do(t, formPost("/records", form, true)); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d", rr.Code)
	}
	if rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/records", nil)); rr.Code != http.StatusOK {
		t.Fatalf("reads are never limited, got %d", rr.Code)
	}
}
