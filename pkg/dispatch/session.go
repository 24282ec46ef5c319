package dispatch

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartclient/pkg/frame"
	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// Config tunes the session goroutines.
type Config struct {
	// KeepAliveGrace is the delay before the first heartbeat.
	KeepAliveGrace time.Duration
	// KeepAliveInterval is the delay between heartbeats.
	KeepAliveInterval time.Duration
	// ShutdownGrace bounds how long shutdown waits for the receiver and
	// keep-alive to exit.
	ShutdownGrace time.Duration
	// MaxPayload lowers the accepted inbound frame size when positive.
	MaxPayload int
	Logger     *slog.Logger
	Metrics    *Metrics
	Trace      frame.TraceFunc
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		KeepAliveGrace:    20 * time.Second,
		KeepAliveInterval: 30 * time.Second,
		ShutdownGrace:     2 * time.Second,
	}
}

// Editor is the part of the terminal engine the main loop drives.
type Editor interface {
	GetAction() terminal.Action
	Break()
	Abort()
}

// Handler interprets one incoming command on the main loop goroutine.
// A returned error is fatal to the session.
type Handler interface {
	Handle(cmd *markup.Element) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(cmd *markup.Element) error

// Handle calls f(cmd).
func (f HandlerFunc) Handle(cmd *markup.Element) error { return f(cmd) }

// Session is the state shared by the receiver, the keep-alive and the main
// loop of one server connection.
type Session struct {
	ID string

	conn    io.ReadWriteCloser
	reader  *frame.Reader
	writer  *frame.Writer
	sync    *frame.SyncState
	queue   *Queue
	cfg     Config
	log     *slog.Logger
	metrics *Metrics

	abort     chan struct{}
	abortOnce sync.Once

	mu     sync.Mutex
	editor Editor

	wg sync.WaitGroup
}

// NewSession wraps an established data connection.
func NewSession(conn io.ReadWriteCloser, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.KeepAliveGrace < 0 {
		cfg.KeepAliveGrace = 0
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = def.KeepAliveInterval
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = def.ShutdownGrace
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := cfg.Metrics
	if m == nil {
		m = NewMetrics()
	}

	s := &Session{
		ID:      uuid.NewString(),
		conn:    conn,
		reader:  frame.NewReader(conn),
		writer:  frame.NewWriter(conn),
		sync:    frame.NewSyncState(),
		queue:   NewQueue(),
		cfg:     cfg,
		metrics: m,
		abort:   make(chan struct{}),
	}
	s.log = log.With("session", s.ID)
	m.attach(s.queue)
	if cfg.MaxPayload > 0 {
		s.reader.SetMaxPayload(cfg.MaxPayload)
	}
	if cfg.Trace != nil {
		s.reader.SetTrace(cfg.Trace)
		s.writer.SetTrace(cfg.Trace)
	}
	return s
}

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.log }

// Metrics returns the session counters.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Queue returns the work queue.
func (s *Session) Queue() *Queue { return s.queue }

// SyncToken returns the token echoed on outbound frames.
func (s *Session) SyncToken() string { return s.sync.Get() }

// SetEditor attaches the terminal engine once it exists.
func (s *Session) SetEditor(ed Editor) {
	s.mu.Lock()
	s.editor = ed
	s.mu.Unlock()
	if ed != nil && s.Aborted() {
		ed.Abort()
	}
}

func (s *Session) currentEditor() Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Abort marks the session as ending. The receiver stops enqueueing and the
// keep-alive stops sending. It is safe to call more than once.
func (s *Session) Abort() {
	s.abortOnce.Do(func() {
		close(s.abort)
		s.log.Debug("session aborted")
	})
}

// Aborted reports whether Abort has been called.
func (s *Session) Aborted() bool {
	select {
	case <-s.abort:
		return true
	default:
		return false
	}
}

// Done is closed by Abort.
func (s *Session) Done() <-chan struct{} { return s.abort }

// Enqueue adds a work item to the queue.
func (s *Session) Enqueue(item WorkItem) error {
	return s.queue.Put(item)
}

// EnqueueOutgoing queues cmd to be sent by the main loop.
func (s *Session) EnqueueOutgoing(cmd *markup.Element) error {
	return s.queue.Put(WorkItem{Kind: KindOutgoing, Command: cmd})
}

// Terminate asks the main loop to stop after the items already queued.
func (s *Session) Terminate() error {
	return s.queue.Put(WorkItem{Kind: KindTerminate})
}

// NotifyAction queues an editor action item. It never blocks, so it can be
// installed as the engine action notifier.
func (s *Session) NotifyAction() {
	if err := s.queue.Put(WorkItem{Kind: KindEditorAction}); err != nil {
		s.log.Debug("editor action dropped", "error", err)
	}
}

// Send encodes cmd and writes it with the current sync token. Write errors
// after Abort are ignored because the peer is expected to be gone.
func (s *Session) Send(cmd *markup.Element) error {
	if err := s.writer.WriteFrame(s.sync.Get(), markup.Marshal(cmd)); err != nil {
		if s.Aborted() {
			s.log.Debug("send after abort failed", "command", cmd.Name, "error", err)
			return nil
		}
		return fmt.Errorf("failed to send %s: %w", cmd.Name, err)
	}
	s.metrics.FrameOut()
	return nil
}
