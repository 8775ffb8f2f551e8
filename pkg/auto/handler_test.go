package auto

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
	h := NewHandler(nil, nil, nil, logger)
	router := chi.NewRouter()
	router.Mount("/automations", h.Routes())
	return router
}

func TestHandleCreate_EmptyBody(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/automations/", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCreate_MissingName(t *testing.T) {
	router := newTestRouter()

	body := `{"trigger":{"type":"CARD_CREATED"},"actions":[{"type":"ADD_LABEL","labelId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111"}]}`
	r := httptest.NewRequest(http.MethodPost, "/automations/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_MissingActions(t *testing.T) {
	router := newTestRouter()

	body := `{"name":"Label urgents","trigger":{"type":"CARD_CREATED"}}`
	r := httptest.NewRequest(http.MethodPost, "/automations/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

// handleGet and handleDryRun check identity.FromContext before parsing the
// path ID, so an unauthenticated request is rejected before ID validation
// ever runs.

func TestHandleGet_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/automations/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleDryRun_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/automations/not-a-uuid/dry-run", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleUpdate_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPut, "/automations/not-a-uuid", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
