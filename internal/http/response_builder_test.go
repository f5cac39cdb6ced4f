package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/escritorio/entries/1").
		JSON(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/escritorio/entries/1" {
		t.Errorf("Location = %q", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["id"] != "1" {
		t.Errorf("body = %v", body)
	}
}

func TestResponseBuilder_NoPayload(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *ResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("bad"), http.StatusNotFound},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
		{"validation", ValidationFailed("bad", map[string]int{"n": 1}), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			var body struct {
				Error   string         `json:"error"`
				Details map[string]int `json:"details"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if body.Error != "bad" {
				t.Errorf("error = %q", body.Error)
			}
			if tt.name == "validation" && body.Details["n"] != 1 {
				t.Errorf("details = %v", body.Details)
			}
		})
	}
}
