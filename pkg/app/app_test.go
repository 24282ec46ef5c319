package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartclient/pkg/frame"
	"smartclient/pkg/ui"
)

// fakeServer is the server end of a piped data connection.
type fakeServer struct {
	t *testing.T
	r *frame.Reader
	w *frame.Writer
}

func (s *fakeServer) send(doc string) {
	s.t.Helper()
	require.NoError(s.t, s.w.WriteFrame("SYNC0001", []byte(doc)))
}

func (s *fakeServer) recv() string {
	s.t.Helper()
	f, err := s.r.ReadFrame()
	require.NoError(s.t, err)
	return string(f.Payload)
}

func testConfig(t *testing.T) AppConfig {
	cfg := DefaultAppConfig()
	cfg.Version = "test"
	cfg.App.KeepAliveGrace = time.Hour
	cfg.App.ConfigDir = t.TempDir()
	return cfg
}

func startSession(t *testing.T, app *Application) (*fakeServer, <-chan error) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { server.Close() })

	done := make(chan error, 1)
	go func() { done <- app.RunConn(context.Background(), client) }()

	s := &fakeServer{t: t, r: frame.NewReader(server), w: frame.NewWriter(server)}
	identity := s.recv()
	assert.True(t, strings.HasPrefix(identity, `<smartclient version="test" utcoffset="`), identity)
	return s, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
		return nil
	}
}

func simScreen(app *Application) tcell.SimulationScreen {
	sim := tcell.NewSimulationScreen("UTF-8")
	app.newScreen = func() (tcell.Screen, error) { return sim, nil }
	return sim
}

// waitRenderer blocks until attachEngine has initialized the screen, so
// reads of the simulation screen never overlap its Init.
func waitRenderer(t *testing.T, app *Application) {
	t.Helper()
	require.Eventually(t, func() bool {
		app.mu.Lock()
		defer app.mu.Unlock()
		return app.renderer != nil
	}, 2*time.Second, 5*time.Millisecond)
}

func screenHas(sim tcell.SimulationScreen, text string) bool {
	cells, w, _ := sim.GetContents()
	var sb strings.Builder
	for i, c := range cells {
		if i > 0 && i%w == 0 {
			sb.WriteByte('\n')
		}
		if len(c.Runes) > 0 {
			sb.WriteRune(c.Runes[0])
		} else {
			sb.WriteByte(' ')
		}
	}
	return strings.Contains(sb.String(), text)
}

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, 80, cfg.App.TerminalWidth)
	assert.Equal(t, 25, cfg.App.TerminalHeight)
}

func TestNewApplicationRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Conn.Host = ""
	_, err := NewApplication(cfg)
	require.Error(t, err)
	assert.Equal(t, 2, ui.ExitCode(err))

	cfg = DefaultAppConfig()
	cfg.App.TerminalWidth = 0
	_, err = NewApplication(cfg)
	require.Error(t, err)
}

func TestNewApplicationOpensLogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.LogFile = filepath.Join(t.TempDir(), "logs", "client.log")
	cfg.App.LogLevel = "debug"

	app, err := NewApplication(cfg)
	require.NoError(t, err)
	app.Logger().Debug("hello", "k", 1)
	require.NoError(t, app.Close())

	data, err := os.ReadFile(cfg.App.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestInteractiveKeyinRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	sim := simScreen(app)

	srv, done := startSession(t, app)
	srv.send(`<d>hi</d>`)
	srv.send(`<k><cf w="3"/></k>`)

	waitRenderer(t, app)
	require.Eventually(t, func() bool { return screenHas(sim, "hi") }, 2*time.Second, 10*time.Millisecond)
	sim.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)
	sim.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)

	assert.Equal(t, `<r e="256">a</r>`, srv.recv())

	srv.send(`<quit/>`)
	assert.NoError(t, waitDone(t, done))

	stats := app.GetStats()
	assert.NotEmpty(t, stats.SessionID)
	assert.EqualValues(t, 3, stats.Counters["frames_in"])
	assert.EqualValues(t, 2, stats.Counters["frames_out"])
	assert.Positive(t, stats.Duration)
}

func TestMenuDisconnect(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)
	sim := simScreen(app)

	srv, done := startSession(t, app)
	srv.send(`<d>ready</d>`)
	waitRenderer(t, app)
	require.Eventually(t, func() bool { return screenHas(sim, "ready") }, 2*time.Second, 10*time.Millisecond)

	sim.InjectKey(MenuKey, 0, tcell.ModNone)
	require.Eventually(t, func() bool { return screenHas(sim, "Disconnect") }, 2*time.Second, 10*time.Millisecond)
	sim.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	assert.NoError(t, waitDone(t, done))
}

func TestHeadlessSessionSavesTrace(t *testing.T) {
	cfg := testConfig(t)
	cfg.Headless = true
	cfg.App.TraceFile = filepath.Join(t.TempDir(), "trace.log")
	cfg.App.TraceFormat = "plain_text"
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	app.newScreen = func() (tcell.Screen, error) {
		t.Error("headless session created a screen")
		return nil, nil
	}

	srv, done := startSession(t, app)
	srv.send(`<d>hello</d>`)
	srv.send(`<quit/>`)
	require.NoError(t, waitDone(t, done))

	data, err := os.ReadFile(cfg.App.TraceFile)
	require.NoError(t, err)
	trace := string(data)
	assert.Contains(t, trace, "outbuf: <smartclient")
	assert.Contains(t, trace, "inbuf: <d>hello</d>")
	assert.Contains(t, trace, "inbuf: <quit/>")
	assert.Equal(t, 3, app.Trace().Len())
}

func TestHeadlessLiveTrace(t *testing.T) {
	var live bytes.Buffer
	cfg := testConfig(t)
	cfg.Headless = true
	cfg.LiveTrace = &live
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	srv, done := startSession(t, app)
	srv.send(`<d>hello</d>`)
	srv.send(`<quit/>`)
	require.NoError(t, waitDone(t, done))

	out := live.String()
	assert.Contains(t, out, ">> <smartclient")
	assert.Contains(t, out, "<< <d>hello</d>")
}

func TestUnexpectedClientCommandEndsSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Headless = true
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	srv, done := startSession(t, app)
	srv.send(`<r e="1"/>`)

	err = waitDone(t, done)
	require.Error(t, err)
	assert.Equal(t, ui.ErrorProtocolDesync, ui.Classify(err).Type)
}

func TestConnectionLossEndsSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Headless = true
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	client, server := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- app.RunConn(context.Background(), client) }()

	_, err = frame.NewReader(server).ReadFrame()
	require.NoError(t, err)
	server.Close()

	assert.NoError(t, waitDone(t, done))
}

func TestStopWithoutSession(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)
	app.Stop()
	assert.Error(t, app.SendBreak())
	assert.Empty(t, app.GetStats().SessionID)
}

func TestRunFailsToConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	cfg := testConfig(t)
	cfg.Conn.Host = "127.0.0.1"
	cfg.Conn.Port = addr.Port
	cfg.Retry.MaxRetries = 0
	app, err := NewApplication(cfg)
	require.NoError(t, err)

	err = app.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ui.ErrorIO, ui.Classify(err).Type)
}

func TestMetricsEndpoint(t *testing.T) {
	app, err := NewApplication(testConfig(t))
	require.NoError(t, err)

	stop, err := app.serveMetrics("127.0.0.1:0")
	require.NoError(t, err)
	stop()

	families, err := app.registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.NotEmpty(t, names)
}
