package comment

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
	router.Mount("/comments", h.Routes())
	return router
}

func TestHandleCreate_MissingCardID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/comments/", strings.NewReader(`{"text":"nice work"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_EmptyText(t *testing.T) {
	router := newTestRouter()

	body := `{"cardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","text":""}`
	r := httptest.NewRequest(http.MethodPost, "/comments/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_TextTooLong(t *testing.T) {
	router := newTestRouter()

	body := `{"cardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","text":"` + strings.Repeat("a", 5001) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/comments/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleUpdate_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPut, "/comments/not-a-uuid", strings.NewReader(`{"text":"edited"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodDelete, "/comments/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
