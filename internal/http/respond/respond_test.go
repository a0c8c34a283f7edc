package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Body.String(); got != "{\"message\":\"Internal Server Error: boom\"}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
