package cache

import (
	"context"
	"sync"
	"time"

	"bilancio/internal/log"
)

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Sweeper periodically removes expired entries from registered caches.
type Sweeper struct {
	mu     sync.Mutex
	caches []Cleaner
	logger *log.Logger

	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewSweeper(logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	return &Sweeper{
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *Sweeper) Register(c Cleaner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches = append(s.caches, c)
}

// Sweep runs one cleanup pass over every registered cache.
func (s *Sweeper) Sweep() int {
	s.mu.Lock()
	caches := append([]Cleaner(nil), s.caches...)
	s.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	if total > 0 {
		s.logger.DebugContext(context.Background(), "Cache cleanup completed", "entries_removed", total)
	}
	return total
}

// Start sweeps every interval until Stop is called.
func (s *Sweeper) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep loop started by Start and waits for it to exit.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.done
		}
	})
}
