// Package frame implements the length-prefixed wire format: an 8 byte sync
// token, an 8 byte space-padded decimal length, then exactly that many
// payload bytes.
package frame

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

const (
	SyncSize   = 8
	LengthSize = 8
	HeaderSize = SyncSize + LengthSize

	// MaxPayload is the largest length an 8 digit header can carry.
	MaxPayload = 99999999
)

// InitialSync is sent until the first frame has been received.
var InitialSync = strings.Repeat(" ", SyncSize)

// Frame is one decoded protocol message.
type Frame struct {
	Sync    string
	Payload []byte
}

// FramingError reports a malformed frame header. The stream cannot be
// resynchronized after one.
type FramingError struct {
	Header string
	Msg    string
}

// Error implements the error interface
func (e *FramingError) Error() string {
	return fmt.Sprintf("framing error: %s (header %q)", e.Msg, e.Header)
}

// TraceFunc receives every frame that passes the trace filter.
type TraceFunc func(inbound bool, text string)

// Reader decodes frames from a stream.
type Reader struct {
	r     io.Reader
	max   int
	trace TraceFunc
}

// NewReader creates a frame reader. Partial reads from r are retried until
// the declared payload length has been consumed.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, max: MaxPayload}
}

// SetMaxPayload lowers the accepted payload bound.
func (r *Reader) SetMaxPayload(n int) {
	if n > 0 && n <= MaxPayload {
		r.max = n
	}
}

// SetTrace installs a trace sink.
func (r *Reader) SetTrace(fn TraceFunc) {
	r.trace = fn
}

// ReadFrame reads exactly one frame.
func (r *Reader) ReadFrame() (Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return Frame{}, fmt.Errorf("failed to read frame header: %w", err)
	}
	lenField := strings.TrimSpace(string(hdr[SyncSize:]))
	n, err := strconv.Atoi(lenField)
	if err != nil {
		return Frame{}, &FramingError{Header: string(hdr[:]), Msg: "length is not numeric"}
	}
	if n < 0 || n > r.max {
		return Frame{}, &FramingError{Header: string(hdr[:]), Msg: fmt.Sprintf("length %d out of range", n)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Frame{}, fmt.Errorf("failed to read %d byte frame payload: %w", n, err)
	}
	f := Frame{Sync: string(hdr[:SyncSize]), Payload: payload}
	if r.trace != nil {
		if text, ok := Traceable(true, payload); ok {
			r.trace(true, text)
		}
	}
	return f, nil
}

// Writer encodes frames onto a stream. It is safe for concurrent use,
// although the session only writes from one goroutine.
type Writer struct {
	mu    sync.Mutex
	bw    *bufio.Writer
	trace TraceFunc
}

// NewWriter creates a frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// SetTrace installs a trace sink.
func (w *Writer) SetTrace(fn TraceFunc) {
	w.trace = fn
}

// WriteFrame writes the header and payload and flushes the stream.
func (w *Writer) WriteFrame(syncToken string, payload []byte) error {
	if len(payload) > MaxPayload {
		return &FramingError{Msg: fmt.Sprintf("payload of %d bytes exceeds frame limit", len(payload))}
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	w.bw.WriteString(PadSync(syncToken))
	fmt.Fprintf(w.bw, "%*d", LengthSize, len(payload))
	w.bw.Write(payload)
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if w.trace != nil {
		if text, ok := Traceable(false, payload); ok {
			w.trace(false, text)
		}
	}
	return nil
}

// PadSync left-pads or truncates a token to SyncSize bytes.
func PadSync(token string) string {
	if len(token) >= SyncSize {
		return token[:SyncSize]
	}
	return strings.Repeat(" ", SyncSize-len(token)) + token
}

// SyncState holds the token captured from the most recently received frame,
// which is echoed on every outbound frame.
type SyncState struct {
	mu    sync.Mutex
	token string
}

// NewSyncState returns a state holding InitialSync.
func NewSyncState() *SyncState {
	return &SyncState{token: InitialSync}
}

// Set records the token of a received frame.
func (s *SyncState) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Get returns the token to send with the next frame.
func (s *SyncState) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
