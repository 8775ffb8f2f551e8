// Package audit is the append-only mutation record from spec.md §4.9 and
// §3's AuditLog entity. Grounded on the teacher's async buffered Writer
// (channel + ticker + batch flush, never blocking the caller), adapted from
// its per-tenant-schema flush grouping to a single shared `audit_logs`
// table scoped by an org_id column, since every row here already carries
// its own org id rather than needing a `SET search_path` connection.
package audit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/telemetry"
)

// Entry is a single audit log append.
type Entry struct {
	OrgID       uuid.UUID
	UserID      uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	EntityTitle string
	Action      dal.AuditAction
	IPAddress   string
	UserAgent   string
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// Writer is an async, buffered audit log writer. Entries are sent to an
// internal channel and flushed by a background goroutine, so a mutating
// request's response path never waits on a database write (spec.md §4.9:
// "the append is best-effort and decoupled from the response path").
type Writer struct {
	factory *dal.Factory
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		factory: dal.NewFactory(pool),
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background flush loop in its own goroutine and returns
// immediately. The loop exits once ctx is cancelled or Close is called,
// after flushing every entry still buffered.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close drains and flushes all pending entries, then waits for the
// background loop to exit.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an entry for async writing. Never blocks: if the buffer is
// full the entry is dropped and a warning is logged, rather than stalling
// the mutation that produced it.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		telemetry.AuditLogDroppedTotal.Inc()
		w.logger.Warn("audit log buffer full, dropping entry",
			"entity_type", entry.EntityType, "action", entry.Action)
	}
}

// LogFromRequest extracts the resolved tenant context and request metadata
// and enqueues an entry, for use by the safe-action wrapper's post-handler
// hook (internal/safeaction).
func (w *Writer) LogFromRequest(r *http.Request, entityType string, entityID uuid.UUID, entityTitle string, action dal.AuditAction) {
	entry := Entry{
		EntityType:  entityType,
		EntityID:    entityID,
		EntityTitle: entityTitle,
		Action:      action,
	}

	if tc, ok := identity.FromContext(r.Context()); ok {
		entry.OrgID = tc.OrgID
		entry.UserID = tc.UserID
	}

	if ip := clientIP(r); ip.IsValid() {
		entry.IPAddress = ip.String()
	}
	entry.UserAgent = r.Header.Get("User-Agent")

	w.Log(entry)
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, e := range entries {
		if e.OrgID == uuid.Nil {
			w.logger.Warn("audit entry without org id, dropping", "entity_type", e.EntityType)
			continue
		}
		d := w.factory.ForOrg(e.OrgID)
		if err := d.AuditLogs().Create(ctx, dal.AuditLog{
			UserID:      e.UserID,
			EntityType:  e.EntityType,
			EntityID:    e.EntityID,
			EntityTitle: e.EntityTitle,
			Action:      e.Action,
			IPAddress:   e.IPAddress,
			UserAgent:   e.UserAgent,
		}); err != nil {
			w.logger.Error("writing audit log entry", "error", err, "entity_type", e.EntityType)
		}
	}
}

// clientIP extracts the client IP, preferring X-Forwarded-For and
// X-Real-IP over RemoteAddr.
func clientIP(r *http.Request) netip.Addr {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if addr, err := netip.ParseAddr(strings.TrimSpace(parts[0])); err == nil {
			return addr
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, _ := netip.ParseAddr(host)
	return addr
}
