package logstore

import (
	"context"
	"sync"
	"time"
)

// poller periodically revalidates the root pointer's change indicator and
// triggers a reload plus listener notification when another writer moved it.
type poller struct {
	store    *Store
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newPoller(store *Store, interval time.Duration) *poller {
	return &poller{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *poller) start() {
	go p.run()
}

func (p *poller) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.store.pollOnce(context.Background())
		case <-p.stop:
			return
		}
	}
}

// Stop is idempotent and safe to call during an in-flight poll: the poll
// finishes, subsequent ticks do not fire.
func (p *poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// pollOnce compares the root pointer's cheap change indicator against the
// last token this instance observed, without reading the full body. A
// difference means an out-of-band writer committed: reload and notify.
func (s *Store) pollOnce(ctx context.Context) {
	s.mu.Lock()
	loaded := s.loaded
	observed := s.curETag
	s.mu.Unlock()
	if !loaded {
		return
	}

	stamp, err := s.meta.Stamp(ctx)
	if err != nil {
		if !isNotFound(err) {
			s.logger.WithError(err).Warn("poll failed")
		}
		return
	}
	if stamp == observed {
		return
	}
	if err := s.Load(ctx); err != nil {
		s.logger.WithError(err).Warn("reload after remote change failed")
		return
	}
	s.notifyListeners()
}
