package audit

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter() chi.Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(nil, logger)
	router := chi.NewRouter()
	router.Mount("/audit-logs", h.Routes())
	return router
}

func TestHandleList_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodGet, "/audit-logs/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
