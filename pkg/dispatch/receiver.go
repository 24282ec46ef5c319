package dispatch

import (
	"errors"
	"fmt"

	"smartclient/pkg/markup"
)

// ErrQuit is returned by the receiver when the server sent quit.
var ErrQuit = errors.New("server requested quit")

// receive reads frames until the session is aborted or the stream fails.
// Every decoded command is queued as an incoming item in frame order.
func (s *Session) receive() error {
	for {
		if s.Aborted() {
			return nil
		}
		f, err := s.reader.ReadFrame()
		if err != nil {
			if s.Aborted() {
				return nil
			}
			return fmt.Errorf("receiver stopped: %w", err)
		}
		s.metrics.FrameIn()
		s.sync.Set(f.Sync)

		cmds, perr := markup.Parse(f.Payload)
		for _, cmd := range cmds {
			if s.Aborted() {
				return nil
			}
			if err := s.queue.Put(WorkItem{Kind: KindIncoming, Command: cmd}); err != nil {
				return nil
			}
			if cmd.Name == "quit" {
				s.Abort()
				return ErrQuit
			}
		}
		if perr != nil {
			s.log.Error("dropping rest of malformed frame", "error", perr, "parsed", len(cmds))
		}
	}
}

// runReceiver runs the receiver and turns a stream failure into a
// terminate item so the main loop winds down.
func (s *Session) runReceiver() {
	err := s.receive()
	switch {
	case err == nil, errors.Is(err, ErrQuit):
		s.log.Debug("receiver exited", "error", err)
	default:
		s.log.Error("connection lost", "error", err)
		s.Abort()
		if err := s.Terminate(); err != nil {
			s.log.Debug("terminate not queued", "error", err)
		}
	}
}
