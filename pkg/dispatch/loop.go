package dispatch

import (
	"context"
	"fmt"
	"time"

	"smartclient/pkg/markup"
	"smartclient/pkg/terminal"
)

// Run starts the receiver and keep-alive goroutines and runs the main loop
// on the calling goroutine until a terminate item, a fatal error or ctx
// cancellation. The session is shut down before Run returns.
func (s *Session) Run(ctx context.Context, h Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Info("session started")

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.runReceiver()
	}()
	go func() {
		defer s.wg.Done()
		s.keepAlive(ctx)
	}()
	go s.watchEditor(ctx)

	err := s.loop(ctx, h)
	s.shutdown()
	if err != nil {
		s.log.Error("session ended with error", "error", err)
	} else {
		s.log.Info("session ended")
	}
	return err
}

// watchEditor unblocks a keyin in progress once the session is ending, so
// the main loop can reach the terminate item.
func (s *Session) watchEditor(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.abort:
	}
	if ed := s.currentEditor(); ed != nil {
		ed.Abort()
	}
}

func (s *Session) loop(ctx context.Context, h Handler) error {
	for {
		item, err := s.queue.Take(ctx)
		if err != nil {
			// closed queue or cancelled context
			return nil
		}
		s.metrics.Item(item.Kind)

		switch item.Kind {
		case KindIncoming:
			if err := h.Handle(item.Command); err != nil {
				return fmt.Errorf("failed to process %s: %w", item.Command.Name, err)
			}
		case KindOutgoing:
			if err := s.Send(item.Command); err != nil {
				return err
			}
		case KindEditorAction:
			if err := s.reportAction(); err != nil {
				return err
			}
		case KindTerminate:
			return nil
		}
	}
}

// reportAction sends the oldest pending keyboard action outside of a keyin.
// Interrupts are consumed silently.
func (s *Session) reportAction() error {
	ed := s.currentEditor()
	if ed == nil {
		return nil
	}
	a := ed.GetAction()
	switch a.Kind {
	case terminal.ActionBreak:
		return s.Send(markup.New("break"))
	case terminal.ActionTrap:
		return s.Send(markup.NewText("t", a.Key.WireString()))
	}
	return nil
}

// shutdown stops the producers, closes an active keyin and waits a bounded
// time for the goroutines to exit.
func (s *Session) shutdown() {
	s.Abort()
	s.queue.Close()
	if ed := s.currentEditor(); ed != nil {
		ed.Break()
		ed.Abort()
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("close connection", "error", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.log.Warn("session goroutines did not stop in time", "grace", s.cfg.ShutdownGrace)
	}
}
