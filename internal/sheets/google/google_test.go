package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financeiro/internal/config"
	"financeiro/internal/core"
)

// fakeSheets serves the subset of the Sheets values API the client uses.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][][]any
	gets   int
}

var cellRange = regexp.MustCompile(`^A(\d+):J(\d+)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.Error(w, "unexpected path", http.StatusNotFound)
		return
	}
	rng = strings.TrimSuffix(rng, ":clear")
	sheet, cells, _ := strings.Cut(rng, "!")

	switch {
	case r.Method == http.MethodGet:
		f.gets++
		rows := f.sheets[sheet]
		col := make([][]any, len(rows))
		for i, row := range rows {
			if len(row) > 0 {
				col[i] = []any{row[0]}
			} else {
				col[i] = []any{}
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": col})
	case r.Method == http.MethodPut:
		m := cellRange.FindStringSubmatch(cells)
		if m == nil {
			http.Error(w, "bad range "+cells, http.StatusBadRequest)
			return
		}
		n, _ := strconv.Atoi(m[1])
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		rows := f.sheets[sheet]
		for len(rows) < n {
			rows = append(rows, nil)
		}
		rows[n-1] = body.Values[0]
		f.sheets[sheet] = rows
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	case r.Method == http.MethodPost:
		m := cellRange.FindStringSubmatch(cells)
		if m == nil {
			http.Error(w, "bad range "+cells, http.StatusBadRequest)
			return
		}
		n, _ := strconv.Atoi(m[1])
		if rows := f.sheets[sheet]; n <= len(rows) {
			rows[n-1] = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) rows(sheet string) [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sheets[sheet]
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheets: map[string][][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return New(svc, "sid", "Lancamentos"), fake
}

func entry(id, desc, amount string) core.Entry {
	return core.Entry{
		ID:          core.EntryID(id),
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		DueDate:     core.MustDate("2026-03-10"),
		Type:        core.Despesa,
		Status:      core.StatusPendente,
	}
}

func TestClient_UpsertAppendsThenUpdatesInPlace(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	ref, err := c.Upsert(ctx, core.Firm, entry("a", "Luz", "-100"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Lancamentos!A2:J2" {
		t.Errorf("ref = %q, want Lancamentos!A2:J2", ref)
	}
	if _, err := c.Upsert(ctx, core.Firm, entry("b", "Água", "-50")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := c.Upsert(ctx, core.Firm, entry("a", "Luz março", "-120")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rows := fake.rows("Lancamentos")
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header plus 2", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "Luz março" || rows[1][3] != "-120.00" {
		t.Errorf("row 2 = %v", rows[1])
	}
	if rows[2][0] != "b" {
		t.Errorf("row 3 = %v", rows[2])
	}
}

func TestClient_WorkspacesUseSeparateSheets(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if _, err := c.Upsert(ctx, core.Personal, entry("a", "Mercado", "-80")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if len(fake.rows("Lancamentos - Pessoal")) != 2 {
		t.Errorf("personal sheet rows = %v", fake.rows("Lancamentos - Pessoal"))
	}
	if len(fake.rows("Lancamentos")) != 0 {
		t.Error("firm sheet should be untouched")
	}
}

func TestClient_RemoveClearsRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, _ = c.Upsert(ctx, core.Firm, entry("a", "Luz", "-100"))
	_, _ = c.Upsert(ctx, core.Firm, entry("b", "Água", "-50"))

	if err := c.Remove(ctx, core.Firm, "a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Remove(ctx, core.Firm, "unknown"); err != nil {
		t.Errorf("Remove(unknown) error = %v", err)
	}

	rows := fake.rows("Lancamentos")
	if len(rows[1]) != 0 {
		t.Errorf("row 2 should be cleared, got %v", rows[1])
	}
	if rows[2][0] != "b" {
		t.Errorf("row 3 should keep b, got %v", rows[2])
	}

	// a re-created entry goes after the last row, not into the hole.
	ref, err := c.Upsert(ctx, core.Firm, entry("a", "Luz", "-100"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if ref != "Lancamentos!A4:J4" {
		t.Errorf("ref = %q, want Lancamentos!A4:J4", ref)
	}
}

func TestClient_RowIndexIsCached(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := c.Upsert(ctx, core.Firm, entry(id, "x", "-1")); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	if fake.gets != 1 {
		t.Errorf("column reads = %d, want 1", fake.gets)
	}

	c.InvalidateRowCache()
	if _, err := c.Upsert(ctx, core.Firm, entry("b", "y", "-2")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if fake.gets != 2 {
		t.Errorf("column reads after invalidation = %d, want 2", fake.gets)
	}
	if rows := fake.rows("Lancamentos"); len(rows) != 4 || rows[2][1] != "2026-03-10" {
		t.Errorf("rows = %v", rows)
	}
}

func TestClient_IndexExpires(t *testing.T) {
	c, fake := newTestClient(t)
	c.cacheValidDuration = time.Millisecond
	ctx := context.Background()

	_, _ = c.Upsert(ctx, core.Firm, entry("a", "x", "-1"))
	time.Sleep(5 * time.Millisecond)
	_, _ = c.Upsert(ctx, core.Firm, entry("a", "x", "-1"))
	if fake.gets != 2 {
		t.Errorf("column reads = %d, want 2", fake.gets)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{}
	if _, err := c.Upsert(context.Background(), core.Firm, entry("a", "x", "-1")); err == nil {
		t.Error("expected error without service")
	}
	if err := c.Remove(context.Background(), core.Firm, "a"); err == nil {
		t.Error("expected error without service")
	}
}

func TestNewFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "missing spreadsheet id",
			cfg:  config.Config{GoogleServiceAccountJSON: "{}"},
			want: "missing GOOGLE_SPREADSHEET_ID",
		},
		{
			name: "no credentials",
			cfg:  config.Config{GoogleSpreadsheetID: "sid"},
			want: "missing Google credentials",
		},
		{
			name: "invalid oauth client",
			cfg: config.Config{
				GoogleSpreadsheetID:   "sid",
				GoogleOAuthClientJSON: "invalid-json",
				GoogleOAuthTokenJSON:  `{"access_token":"test"}`,
			},
			want: "oauth config",
		},
		{
			name: "oauth client without token",
			cfg: config.Config{
				GoogleSpreadsheetID:   "sid",
				GoogleOAuthClientJSON: `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`,
			},
			want: "missing OAuth token",
		},
		{
			name: "missing service account file",
			cfg: config.Config{
				GoogleSpreadsheetID:      "sid",
				GoogleServiceAccountFile: "/non/existent/sa.json",
			},
			want: "read service account",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromConfig(context.Background(), &tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}
