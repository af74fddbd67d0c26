package automation

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// sessions keeps automation pages open for a fixed lifetime and closes them
// when it expires or on shutdown, whichever comes first.
type sessions struct {
	mu     sync.Mutex
	open   map[string]io.Closer
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	closed bool
}

func newSessions() *sessions {
	return &sessions{
		open: make(map[string]io.Closer),
		done: make(chan struct{}),
	}
}

// hold tracks c under id and closes it after ttl. It reports false, and
// closes c immediately, when the set has already shut down.
func (s *sessions) hold(id string, c io.Closer, ttl time.Duration) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.Close()
		return false
	}
	s.open[id] = c
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(ttl)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.done:
		}

		s.mu.Lock()
		delete(s.open, id)
		s.mu.Unlock()

		if err := c.Close(); err != nil {
			slog.Warn("failed to close automation session",
				"component", "automation",
				"session", id,
				"error", err,
			)
			return
		}
		slog.Info("automation session closed",
			"component", "automation",
			"session", id,
		)
	}()
	return true
}

// count returns the number of sessions still open.
func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// closeAll ends every open session and waits for them to close.
func (s *sessions) closeAll() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	s.wg.Wait()
}
