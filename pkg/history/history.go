// Package history records the frames exchanged with the server and exports
// the trace to a file.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Direction represents the direction of a frame
type Direction int

const (
	DirectionInbound Direction = iota
	DirectionOutbound
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "in"
	case DirectionOutbound:
		return "out"
	default:
		return "unknown"
	}
}

// FileFormat represents different file export formats
type FileFormat int

const (
	FormatPlainText FileFormat = iota
	FormatTimestamped
	FormatJSON
)

// String returns the string representation of FileFormat
func (f FileFormat) String() string {
	switch f {
	case FormatPlainText:
		return "plain_text"
	case FormatTimestamped:
		return "timestamped"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the String forms plus the short names "plain",
// "text" and "ts".
func ParseFormat(s string) (FileFormat, error) {
	switch strings.ToLower(s) {
	case "plain", "plain_text", "text":
		return FormatPlainText, nil
	case "timestamped", "ts":
		return FormatTimestamped, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unknown trace format %q", s)
}

// Entry is one traced frame payload.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// Validate checks if the entry is valid
func (e Entry) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}

	if e.Direction != DirectionInbound && e.Direction != DirectionOutbound {
		return fmt.Errorf("invalid direction: %d", e.Direction)
	}

	return nil
}

// Stats summarizes the recorded trace.
type Stats struct {
	Entries  int `json:"entries"`
	Inbound  int `json:"inbound"`
	Outbound int `json:"outbound"`
	// Dropped counts entries evicted to stay within the entry limit.
	Dropped     int        `json:"dropped"`
	OldestEntry *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry *time.Time `json:"newest_entry,omitempty"`
}

// DefaultMaxEntries bounds a Recorder created with a non-positive limit.
const DefaultMaxEntries = 10000

// Recorder keeps the most recent frames in memory. Its Record method has
// the frame.TraceFunc signature so it can be installed directly on a
// session. It is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	dropped    int
	live       io.Writer
	now        func() time.Time
}

// NewRecorder creates a recorder holding at most maxEntries frames.
func NewRecorder(maxEntries int) *Recorder {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Recorder{
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetLive mirrors every recorded frame to w in timestamped form. A nil
// writer turns mirroring off.
func (r *Recorder) SetLive(w io.Writer) {
	r.mu.Lock()
	r.live = w
	r.mu.Unlock()
}

// Record appends a frame to the trace.
func (r *Recorder) Record(inbound bool, text string) {
	dir := DirectionOutbound
	if inbound {
		dir = DirectionInbound
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Entry{Timestamp: r.now(), Direction: dir, Text: text}
	if len(r.entries) >= r.maxEntries {
		n := len(r.entries) - r.maxEntries + 1
		r.entries = append(r.entries[:0], r.entries[n:]...)
		r.dropped += n
	}
	r.entries = append(r.entries, entry)

	if r.live != nil {
		writeTimestamped(r.live, []Entry{entry})
	}
}

// Len returns the number of entries held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns a copy of the recorded entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear drops all entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.entries = r.entries[:0]
	r.dropped = 0
	r.mu.Unlock()
}

// SetMaxEntries changes the entry limit, evicting the oldest entries when
// the trace is already longer.
func (r *Recorder) SetMaxEntries(n int) error {
	if n <= 0 {
		return fmt.Errorf("max entries must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.maxEntries = n
	if over := len(r.entries) - n; over > 0 {
		r.entries = append(r.entries[:0], r.entries[over:]...)
		r.dropped += over
	}
	return nil
}

// Stats returns statistics about the trace
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Entries: len(r.entries), Dropped: r.dropped}
	for _, e := range r.entries {
		if e.Direction == DirectionInbound {
			stats.Inbound++
		} else {
			stats.Outbound++
		}
	}
	if len(r.entries) > 0 {
		oldest := r.entries[0].Timestamp
		newest := r.entries[len(r.entries)-1].Timestamp
		stats.OldestEntry = &oldest
		stats.NewestEntry = &newest
	}
	return stats
}

// SaveToFile writes the trace to filename. A ".zst" suffix compresses the
// output with zstd.
func (r *Recorder) SaveToFile(filename string, format FileFormat) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	return SaveEntries(r.Entries(), filename, format)
}

// SaveEntries writes entries to filename in the given format.
func SaveEntries(entries []Entry, filename string, format FileFormat) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var w io.Writer = file
	var enc *zstd.Encoder
	if isCompressed(filename) {
		enc, err = zstd.NewWriter(file)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = enc
	}

	if err := WriteEntries(w, entries, format); err != nil {
		if enc != nil {
			enc.Close()
		}
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to finish zstd stream: %w", err)
		}
	}
	return file.Close()
}

// WriteEntries encodes entries onto w.
func WriteEntries(w io.Writer, entries []Entry, format FileFormat) error {
	switch format {
	case FormatPlainText:
		return writePlainText(w, entries)
	case FormatTimestamped:
		return writeTimestamped(w, entries)
	case FormatJSON:
		return writeJSON(w, entries)
	default:
		return fmt.Errorf("unsupported format: %v", format)
	}
}

// LoadFile reads a trace previously saved in JSON format, compressed or not.
func LoadFile(filename string) ([]Entry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var rd io.Reader = file
	if isCompressed(filename) {
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		rd = dec
	}

	var doc struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.NewDecoder(rd).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse trace file: %w", err)
	}
	for i, e := range doc.Entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return doc.Entries, nil
}

func isCompressed(filename string) bool {
	return strings.HasSuffix(filename, ".zst")
}

func writePlainText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s: %s\n", prefix(e.Direction), oneLine(e.Text)); err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
	}
	return nil
}

func writeTimestamped(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		direction := "<<"
		if e.Direction == DirectionOutbound {
			direction = ">>"
		}

		if _, err := fmt.Fprintf(w, "[%s] %s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05.000"),
			direction,
			oneLine(e.Text)); err != nil {
			return fmt.Errorf("failed to write timestamped data: %w", err)
		}
	}
	return nil
}

func writeJSON(w io.Writer, entries []Entry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	data := struct {
		Entries []Entry `json:"entries"`
		Count   int     `json:"count"`
	}{
		Entries: entries,
		Count:   len(entries),
	}

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func prefix(d Direction) string {
	if d == DirectionInbound {
		return "inbuf"
	}
	return "outbuf"
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
