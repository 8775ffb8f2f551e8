package hook

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
	router.Mount("/webhooks", h.Routes())
	return router
}

func TestHandleCreate_EmptyBody(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/webhooks/", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCreate_InvalidURL(t *testing.T) {
	router := newTestRouter()

	body := `{"url":"not-a-url","events":["card.created"]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_MissingEvents(t *testing.T) {
	router := newTestRouter()

	body := `{"url":"https://example.com/hook"}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleUpdate_InvalidID(t *testing.T) {
	router := newTestRouter()

	body := `{"url":"https://example.com/hook","events":["card.created"]}`
	r := httptest.NewRequest(http.MethodPut, "/webhooks/not-a-uuid", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodDelete, "/webhooks/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleGet_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/webhooks/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleListDeliveries_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/webhooks/4b1f8c0e-6e3a-4f3a-9e8a-111111111111/deliveries", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
