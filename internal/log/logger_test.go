package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew_JSONFormatCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.Info("Entry saved", FieldEntryID, "abc")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if line[FieldComponent] != ComponentLedger {
		t.Errorf("component = %v, want %v", line[FieldComponent], ComponentLedger)
	}
	if line[FieldEntryID] != "abc" {
		t.Errorf("entry_id = %v, want abc", line[FieldEntryID])
	}
}

func TestWithComponent_ReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "text", Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentWorker).Info("tick")

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Errorf("expected a single component attribute, got %q", out)
	}
	if !strings.Contains(out, "component=worker") {
		t.Errorf("expected worker component, got %q", out)
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil || logger.Component() != "unknown" {
		t.Fatalf("unexpected fallback logger: %+v", logger)
	}

	custom := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	ctx := WithLogger(context.Background(), custom)
	if FromContext(ctx) != custom {
		t.Error("expected logger stored in context")
	}
}

func TestRequestLogger_FinishedLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{422, "WARN"},
		{500, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		rl := NewRequestLogger(New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentHTTP}))
		req := httptest.NewRequest("GET", "/api/escritorio/entries", nil)

		rl.Finished(context.Background(), req, tt.status, 3*time.Millisecond, "127.0.0.1")

		if !strings.Contains(buf.String(), "level="+tt.level) {
			t.Errorf("status %d: expected level %s in %q", tt.status, tt.level, buf.String())
		}
	}
}

func TestLogFields_Builder(t *testing.T) {
	fields := NewFields().
		WithWorkspace("pessoal").
		WithEntry("e1", "plain", "", "").
		WithError(errors.New("boom")).
		WithError(nil)

	if fields[FieldWorkspace] != "pessoal" || fields[FieldEntryID] != "e1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if _, ok := fields[FieldAmount]; ok {
		t.Error("empty amount should be skipped")
	}
	if fields[FieldError] != "boom" {
		t.Errorf("error = %v", fields[FieldError])
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Error("ToSlice length mismatch")
	}
}
