package reaction

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
	router.Mount("/reactions", h.Routes())
	return router
}

func TestHandleAdd_MissingEmoji(t *testing.T) {
	router := newTestRouter()

	body := `{"commentId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111"}`
	r := httptest.NewRequest(http.MethodPost, "/reactions/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleAdd_EmojiTooLong(t *testing.T) {
	router := newTestRouter()

	body := `{"commentId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","emoji":"` + strings.Repeat("x", 33) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/reactions/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleAdd_PlainWordEmojiRejected(t *testing.T) {
	router := newTestRouter()

	body := `{"commentId":"4b1f8c0e-6e3a-4f3a-9e8a-111111111111","emoji":"thumbsup"}`
	r := httptest.NewRequest(http.MethodPost, "/reactions/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleRemove_MissingCommentID(t *testing.T) {
	router := newTestRouter()

	body := `{"emoji":"👍"}`
	r := httptest.NewRequest(http.MethodDelete, "/reactions/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d; body = %s", w.Code, http.StatusUnprocessableEntity, w.Body.String())
	}
}

func TestHandleAdd_EmptyBody(t *testing.T) {
	router := newTestRouter()

	r := httptest.NewRequest(http.MethodPost, "/reactions/", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
