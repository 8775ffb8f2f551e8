package card

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(nil, nil, logger)
	router := chi.NewRouter()
	router.Mount("/cards", h.Routes())
	return router
}

func TestHandleCreate_MissingListID(t *testing.T) {
	router := newTestRouter()

	body := `{"title":"Fix bug","priority":"HIGH"}`
	r := httptest.NewRequest(http.MethodPost, "/cards/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_InvalidPriority(t *testing.T) {
	router := newTestRouter()

	body := `{"listId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","title":"Fix bug","priority":"WHENEVER"}`
	r := httptest.NewRequest(http.MethodPost, "/cards/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_DescriptionTooLong(t *testing.T) {
	router := newTestRouter()

	body := `{"listId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","title":"Fix bug","priority":"LOW","description":"` +
		strings.Repeat("a", 10001) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/cards/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_TitleLengthBoundary(t *testing.T) {
	post := func(title string) int {
		router := newTestRouter()
		body := `{"listId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","title":"` + title + `","priority":"LOW"}`
		r := httptest.NewRequest(http.MethodPost, "/cards/", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w.Code
	}

	if code := post(""); code != http.StatusUnprocessableEntity {
		t.Errorf("title length 0: status = %d, want %d", code, http.StatusUnprocessableEntity)
	}
	if code := post(strings.Repeat("a", 101)); code != http.StatusUnprocessableEntity {
		t.Errorf("title length 101: status = %d, want %d", code, http.StatusUnprocessableEntity)
	}
}

func TestHandleUpdate_DescriptionLengthBoundary(t *testing.T) {
	patch := func(desc string) int {
		router := newTestRouter()
		body := `{"description":"` + desc + `"}`
		r := httptest.NewRequest(http.MethodPatch, "/cards/4b1f8c0e-6e3a-4f3a-9e8a-111111111111", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w.Code
	}

	if code := patch(strings.Repeat("a", 2)); code != http.StatusUnprocessableEntity {
		t.Errorf("description length 2: status = %d, want %d", code, http.StatusUnprocessableEntity)
	}
	if code := patch(strings.Repeat("a", 10001)); code != http.StatusUnprocessableEntity {
		t.Errorf("description length 10001: status = %d, want %d", code, http.StatusUnprocessableEntity)
	}
}

func TestHandleUpdate_InvalidPriority(t *testing.T) {
	router := newTestRouter()

	body := `{"priority":"WHENEVER"}`
	r := httptest.NewRequest(http.MethodPatch, "/cards/4b1f8c0e-6e3a-4f3a-9e8a-111111111111", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleUpdate_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPatch, "/cards/not-a-uuid", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodDelete, "/cards/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleReorder_EmptyItems(t *testing.T) {
	router := newTestRouter()

	body := `{"boardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","items":[]}`
	r := httptest.NewRequest(http.MethodPost, "/cards/reorder", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleGet_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/cards/4b1f8c0e-6e3a-4f3a-9e8a-111111111111", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestParseOptionalTime(t *testing.T) {
	if got, err := parseOptionalTime(nil); got != nil || err != nil {
		t.Errorf("parseOptionalTime(nil) = (%v, %v), want (nil, nil)", got, err)
	}

	valid := "2026-08-01T12:00:00Z"
	got, err := parseOptionalTime(&valid)
	if err != nil {
		t.Fatalf("parseOptionalTime(%q) returned error: %v", valid, err)
	}
	if got == nil || got.Year() != 2026 {
		t.Errorf("parseOptionalTime(%q) = %v, want year 2026", valid, got)
	}

	invalid := "not-a-date"
	if _, err := parseOptionalTime(&invalid); err == nil {
		t.Error("parseOptionalTime with malformed timestamp: expected error, got nil")
	}
}

func TestParseOptionalUUID(t *testing.T) {
	if got, err := parseOptionalUUID(nil); got != nil || err != nil {
		t.Errorf("parseOptionalUUID(nil) = (%v, %v), want (nil, nil)", got, err)
	}

	valid := "4b1f8c0e-6e3a-4f3a-9e8a-111111111111"
	got, err := parseOptionalUUID(&valid)
	if err != nil {
		t.Fatalf("parseOptionalUUID(%q) returned error: %v", valid, err)
	}
	if got == nil || got.String() != valid {
		t.Errorf("parseOptionalUUID(%q) = %v, want %v", valid, got, valid)
	}

	invalid := "not-a-uuid"
	if _, err := parseOptionalUUID(&invalid); err == nil {
		t.Error("parseOptionalUUID with malformed uuid: expected error, got nil")
	}
}
