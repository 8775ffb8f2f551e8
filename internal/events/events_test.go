package events

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingHandler struct {
	mu  sync.Mutex
	got []Envelope
	wg  *sync.WaitGroup
}

func (r *recordingHandler) Handle(ctx context.Context, env Envelope) {
	defer r.wg.Done()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, env)
}

type panickingHandler struct {
	wg *sync.WaitGroup
}

func (p *panickingHandler) Handle(ctx context.Context, env Envelope) {
	defer p.wg.Done()
	panic("boom")
}

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	bus := newTestBus()

	var wg sync.WaitGroup
	wg.Add(2)
	h1 := &recordingHandler{wg: &wg}
	h2 := &recordingHandler{wg: &wg}
	bus.Subscribe(h1)
	bus.Subscribe(h2)

	orgID := uuid.New()
	bus.Publish(context.Background(), Envelope{Type: CardCreated, OrgID: orgID})

	waitOrTimeout(t, &wg)

	h1.mu.Lock()
	defer h1.mu.Unlock()
	if len(h1.got) != 1 || h1.got[0].OrgID != orgID {
		t.Errorf("handler 1 got %+v, want one envelope for org %s", h1.got, orgID)
	}
	h2.mu.Lock()
	defer h2.mu.Unlock()
	if len(h2.got) != 1 {
		t.Errorf("handler 2 got %d envelopes, want 1", len(h2.got))
	}
}

func TestPublish_PanickingHandlerDoesNotAffectSiblings(t *testing.T) {
	bus := newTestBus()

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe(&panickingHandler{wg: &wg})
	sane := &recordingHandler{wg: &wg}
	bus.Subscribe(sane)

	bus.Publish(context.Background(), Envelope{Type: CardUpdated})

	waitOrTimeout(t, &wg)

	sane.mu.Lock()
	defer sane.mu.Unlock()
	if len(sane.got) != 1 {
		t.Errorf("sane handler got %d envelopes, want 1 despite sibling panic", len(sane.got))
	}
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handlers")
	}
}
