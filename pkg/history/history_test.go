package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}

func newTestRecorder(max int) *Recorder {
	r := NewRecorder(max)
	r.now = fixedClock()
	return r
}

func TestDirection_String(t *testing.T) {
	tests := []struct {
		direction Direction
		expected  string
	}{
		{DirectionInbound, "in"},
		{DirectionOutbound, "out"},
		{Direction(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.direction.String(); got != tt.expected {
				t.Errorf("Direction.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    FileFormat
		wantErr bool
	}{
		{"plain", FormatPlainText, false},
		{"plain_text", FormatPlainText, false},
		{"TS", FormatTimestamped, false},
		{"timestamped", FormatTimestamped, false},
		{"json", FormatJSON, false},
		{"xml", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if !tt.wantErr {
				if again, _ := ParseFormat(got.String()); again != got {
					t.Errorf("String() form %q does not parse back", got.String())
				}
			}
		})
	}
}

func TestEntry_Validate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid", Entry{Timestamp: now, Direction: DirectionInbound, Text: "<d/>"}, false},
		{"empty text", Entry{Timestamp: now, Direction: DirectionOutbound}, false},
		{"zero timestamp", Entry{Direction: DirectionInbound}, true},
		{"bad direction", Entry{Timestamp: now, Direction: Direction(7)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.entry.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Entry.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecorder_Record(t *testing.T) {
	r := newTestRecorder(10)
	r.Record(true, "<d>hi</d>")
	r.Record(false, "<r e=\"256\"/>")

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d entries, want 2", len(entries))
	}
	if entries[0].Direction != DirectionInbound || entries[0].Text != "<d>hi</d>" {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Direction != DirectionOutbound {
		t.Errorf("second entry direction = %v, want out", entries[1].Direction)
	}
	if !entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("entries should be in recording order")
	}

	entries[0].Text = "changed"
	if r.Entries()[0].Text != "<d>hi</d>" {
		t.Error("Entries() should return a copy")
	}
}

func TestRecorder_EvictsOldest(t *testing.T) {
	r := newTestRecorder(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Record(true, s)
	}

	entries := r.Entries()
	var got []string
	for _, e := range entries {
		got = append(got, e.Text)
	}
	if strings.Join(got, "") != "cde" {
		t.Errorf("entries = %v, want [c d e]", got)
	}
	if s := r.Stats(); s.Dropped != 2 {
		t.Errorf("Stats().Dropped = %d, want 2", s.Dropped)
	}
}

func TestRecorder_SetMaxEntries(t *testing.T) {
	r := newTestRecorder(10)
	for _, s := range []string{"a", "b", "c", "d"} {
		r.Record(false, s)
	}
	if err := r.SetMaxEntries(0); err == nil {
		t.Error("SetMaxEntries(0) should fail")
	}
	if err := r.SetMaxEntries(2); err != nil {
		t.Fatalf("SetMaxEntries(2) failed: %v", err)
	}
	if r.Len() != 2 || r.Entries()[0].Text != "c" {
		t.Errorf("after shrinking, entries = %+v", r.Entries())
	}
}

func TestRecorder_StatsAndClear(t *testing.T) {
	r := newTestRecorder(10)
	if s := r.Stats(); s.Entries != 0 || s.OldestEntry != nil {
		t.Errorf("empty Stats() = %+v", s)
	}

	r.Record(true, "a")
	r.Record(true, "b")
	r.Record(false, "c")

	s := r.Stats()
	if s.Entries != 3 || s.Inbound != 2 || s.Outbound != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.OldestEntry == nil || s.NewestEntry == nil || !s.OldestEntry.Before(*s.NewestEntry) {
		t.Errorf("Stats() timestamps = %v, %v", s.OldestEntry, s.NewestEntry)
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d", r.Len())
	}
}

func TestRecorder_Live(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRecorder(10)
	r.SetLive(&buf)
	r.Record(true, "<d>x</d>")
	r.SetLive(nil)
	r.Record(false, "<r/>")

	want := "[2024-03-01 12:00:00.001] << <d>x</d>\n"
	if buf.String() != want {
		t.Errorf("live output = %q, want %q", buf.String(), want)
	}
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	r := NewRecorder(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(inbound bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record(inbound, "x")
			}
		}(i%2 == 0)
	}
	wg.Wait()

	s := r.Stats()
	if s.Entries != 800 || s.Inbound != 400 || s.Outbound != 400 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestWriteEntries(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 5e6, time.UTC)
	entries := []Entry{
		{Timestamp: ts, Direction: DirectionInbound, Text: "<d>a\nb</d>"},
		{Timestamp: ts, Direction: DirectionOutbound, Text: "<r/>"},
	}

	tests := []struct {
		format FileFormat
		want   string
	}{
		{FormatPlainText, "inbuf: <d>a\\nb</d>\noutbuf: <r/>\n"},
		{FormatTimestamped, "[2024-03-01 12:00:00.005] << <d>a\\nb</d>\n[2024-03-01 12:00:00.005] >> <r/>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteEntries(&buf, entries, tt.format); err != nil {
				t.Fatalf("WriteEntries() failed: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("WriteEntries() = %q, want %q", buf.String(), tt.want)
			}
		})
	}

	var buf bytes.Buffer
	if err := WriteEntries(&buf, entries, FormatJSON); err != nil {
		t.Fatalf("WriteEntries(JSON) failed: %v", err)
	}
	var doc struct {
		Entries []Entry `json:"entries"`
		Count   int     `json:"count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("JSON output does not parse: %v", err)
	}
	if doc.Count != 2 || doc.Entries[0].Text != "<d>a\nb</d>" {
		t.Errorf("JSON document = %+v", doc)
	}

	if err := WriteEntries(&buf, entries, FileFormat(99)); err == nil {
		t.Error("WriteEntries should reject an unknown format")
	}
}

func TestRecorder_SaveToFile(t *testing.T) {
	dir := t.TempDir()
	r := newTestRecorder(10)
	r.Record(true, "<d>hello</d>")
	r.Record(false, "<r e=\"256\"/>")

	if err := r.SaveToFile("", FormatJSON); err == nil {
		t.Error("SaveToFile with empty filename should fail")
	}

	plain := filepath.Join(dir, "trace.txt")
	if err := r.SaveToFile(plain, FormatPlainText); err != nil {
		t.Fatalf("SaveToFile(plain) failed: %v", err)
	}
	data, err := os.ReadFile(plain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "inbuf: <d>hello</d>\n") {
		t.Errorf("plain trace = %q", data)
	}

	for _, name := range []string{"trace.json", "trace.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := r.SaveToFile(path, FormatJSON); err != nil {
				t.Fatalf("SaveToFile failed: %v", err)
			}
			entries, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if len(entries) != 2 || entries[1].Text != "<r e=\"256\"/>" || entries[1].Direction != DirectionOutbound {
				t.Errorf("LoadFile() = %+v", entries)
			}
		})
	}
}

func TestSaveToFile_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log.zst")
	r := newTestRecorder(10)
	r.Record(true, "<d>compressed</d>")
	if err := r.SaveToFile(path, FormatTimestamped); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		t.Fatalf("output is not a zstd stream: %v", err)
	}
	if !strings.Contains(string(out), "<< <d>compressed</d>") {
		t.Errorf("decompressed trace = %q", out)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFile of a missing file should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("not json"), 0644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("LoadFile of malformed JSON should fail")
	}

	invalid := filepath.Join(dir, "invalid.json")
	os.WriteFile(invalid, []byte(`{"entries":[{"direction":0,"text":"x"}]}`), 0644)
	if _, err := LoadFile(invalid); err == nil {
		t.Error("LoadFile should reject entries without a timestamp")
	}
}
