package dispatch

import (
	"context"
	"time"

	"smartclient/pkg/markup"
)

// keepAlive queues an alivechk heartbeat every interval after an initial
// grace period. It stops as soon as the session is aborted or ctx is done.
func (s *Session) keepAlive(ctx context.Context) {
	if !s.sleep(ctx, s.cfg.KeepAliveGrace) {
		return
	}
	for {
		if !s.sleep(ctx, s.cfg.KeepAliveInterval) {
			return
		}
		if err := s.EnqueueOutgoing(markup.New("alivechk")); err != nil {
			return
		}
	}
}

// sleep waits for d and reports false if the wait was cut short.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if s.Aborted() {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return !s.Aborted()
	case <-s.abort:
		return false
	case <-ctx.Done():
		return false
	}
}
