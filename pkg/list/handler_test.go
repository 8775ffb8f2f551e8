package list

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
	router.Mount("/lists", h.Routes())
	return router
}

func TestHandleList_MissingBoardID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/lists/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (identity check runs before boardId parsing)", w.Code, http.StatusUnauthorized)
	}
}

func TestHandleCreate_MissingBoardID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/lists/", strings.NewReader(`{"title":"To Do"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleCreate_MissingTitle(t *testing.T) {
	router := newTestRouter()

	body := `{"boardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111"}`
	r := httptest.NewRequest(http.MethodPost, "/lists/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleUpdate_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPut, "/lists/not-a-uuid", strings.NewReader(`{"title":"x"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleDelete_InvalidID(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodDelete, "/lists/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleReorder_EmptyItems(t *testing.T) {
	router := newTestRouter()

	body := `{"boardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","items":[]}`
	r := httptest.NewRequest(http.MethodPost, "/lists/reorder", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleReorder_ItemMissingOrder(t *testing.T) {
	router := newTestRouter()

	body := `{"boardId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","items":[{"id":"4b1f8c0e-6e3a-4f3a-9e8a-222222222222"}]}`
	r := httptest.NewRequest(http.MethodPost, "/lists/reorder", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}
