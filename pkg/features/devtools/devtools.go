// Package devtools provides a change-record inspector for development.
//
// An Inspector installs itself as middleware on the write chain, keeps a
// ring buffer of recent StateChange records, and serves them over HTTP:
// GET /changes returns the buffered records as JSON, GET /live upgrades to a
// WebSocket that streams records as they are committed.
//
// The inspector consumes only middleware-visible records; it never touches
// signal internals and adds no overhead when not installed.
package devtools

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/signet-dev/signet/pkg/signet"
)

// DefaultBufferSize is the default ring-buffer capacity.
const DefaultBufferSize = 512

// Record is the JSON shape of one committed write.
type Record struct {
	Seq     int64     `json:"seq"`
	Time    time.Time `json:"time"`
	Signal  string    `json:"signal"`
	Old     any       `json:"old"`
	New     any       `json:"new"`
	Type    string    `json:"type"`
	Stopped bool      `json:"stopped,omitempty"`
}

// Inspector buffers and serves committed change records.
type Inspector struct {
	mu   sync.Mutex
	seq  int64
	buf  []Record
	next int
	full bool

	logger *slog.Logger
	hub    *hub
	remove func()
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithBufferSize sets the ring-buffer capacity.
func WithBufferSize(n int) Option {
	return func(i *Inspector) { i.buf = make([]Record, n) }
}

// WithLogger sets the logger used for connection-level events.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) { i.logger = l }
}

// New creates an Inspector and installs its middleware on the chain.
// Call Close to uninstall it.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		buf:    make([]Record, DefaultBufferSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.hub = newHub(i.logger)

	i.remove = signet.Use(signet.Middleware{
		Name:  "devtools",
		After: i.record,
	})

	return i
}

// Close uninstalls the middleware and disconnects live clients.
func (i *Inspector) Close() {
	if i.remove != nil {
		i.remove()
		i.remove = nil
	}
	i.hub.closeAll()
}

func (i *Inspector) record(c *signet.StateChange) {
	i.mu.Lock()
	i.seq++
	rec := Record{
		Seq:     i.seq,
		Time:    c.Timestamp,
		Signal:  c.Name,
		Old:     c.Old,
		New:     c.New,
		Type:    c.Type,
		Stopped: c.Stopped(),
	}
	i.buf[i.next] = rec
	i.next = (i.next + 1) % len(i.buf)
	if i.next == 0 {
		i.full = true
	}
	i.mu.Unlock()

	i.hub.broadcast(rec)
}

// Changes returns the buffered records, oldest first.
func (i *Inspector) Changes() []Record {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.full {
		out := make([]Record, i.next)
		copy(out, i.buf[:i.next])
		return out
	}
	out := make([]Record, 0, len(i.buf))
	out = append(out, i.buf[i.next:]...)
	out = append(out, i.buf[:i.next]...)
	return out
}

// Handler returns the inspector's HTTP surface.
func (i *Inspector) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/changes", i.handleChanges)
	r.Get("/live", i.hub.handleLive)
	return r
}

func (i *Inspector) handleChanges(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, i.Changes(), i.logger)
}
