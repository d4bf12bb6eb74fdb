package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"samplace/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type recordedCall struct {
	method string
	path   string
	body   []byte
}

type fakeSheets struct {
	mu    sync.Mutex
	calls []recordedCall
	get   string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: r.Method, path: r.URL.Path, body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet && f.get != "" {
		io.WriteString(w, f.get)
		return
	}
	io.WriteString(w, "{}")
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-123", "Transactions",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestReplaceAllClearsThenWrites(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	txs := []core.Transaction{{
		ID:          1,
		Date:        core.NewDate(2024, 1, 1),
		Description: "Opening",
		Income:      core.Money{Cents: 20000},
		Balance:     core.Money{Cents: 20000},
	}}
	if err := c.ReplaceAll(context.Background(), txs); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	if len(fake.calls) != 2 {
		t.Fatalf("expected clear and update calls, got %d", len(fake.calls))
	}

	cleared := fake.calls[0]
	if cleared.method != http.MethodPost || !strings.HasSuffix(cleared.path, ":clear") {
		t.Fatalf("first call = %s %s, want POST ...:clear", cleared.method, cleared.path)
	}
	if !strings.Contains(cleared.path, "sheet-123") || !strings.Contains(cleared.path, "'Transactions'!A:F") {
		t.Fatalf("unexpected clear path %s", cleared.path)
	}

	update := fake.calls[1]
	if update.method != http.MethodPut || !strings.Contains(update.path, "'Transactions'!A1:F2") {
		t.Fatalf("second call = %s %s, want PUT on A1:F2", update.method, update.path)
	}
	var vr gsheet.ValueRange
	if err := json.Unmarshal(update.body, &vr); err != nil {
		t.Fatalf("decode update body: %v", err)
	}
	if len(vr.Values) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(vr.Values))
	}
	if vr.Values[0][0] != "id" || vr.Values[1][2] != "Opening" || vr.Values[1][5] != float64(200) {
		t.Fatalf("unexpected values %v", vr.Values)
	}
}

func TestReadAll(t *testing.T) {
	fake := &fakeSheets{get: `{"range":"Transactions!A1:F2","values":[["id","trans_date"],[1," 2024-01-01 "]]}`}
	c := newTestClient(t, fake)

	rows, err := c.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1" || rows[1][1] != "2024-01-01" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := NewWithOptions(context.Background(), "  ", "", goption.WithoutAuthentication())
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := loadCredentials(ctx, Credentials{}); err == nil {
		t.Fatal("expected error without credentials")
	}

	data, err := loadCredentials(ctx, Credentials{JSON: `{"type":"service_account"}`, File: "/nope"})
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Fatalf("inline JSON should win, got %q, %v", data, err)
	}

	if _, err := loadCredentials(ctx, Credentials{File: "/definitely/missing.json"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestA1QuotesSheetName(t *testing.T) {
	c := &Client{sheetName: "Bob's Ledger"}
	if got := c.a1("A:F"); got != "'Bob''s Ledger'!A:F" {
		t.Fatalf("a1 = %q", got)
	}
}
