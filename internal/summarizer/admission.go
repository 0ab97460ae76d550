package summarizer

import (
	"context"
	"time"
)

// slot serializes generation on one device. queueCh bounds how many callers
// may wait; genCh holds the single in-flight generation.
type slot struct {
	genCh   chan struct{}
	queueCh chan struct{}
}

func (s *Service) slotFor(dev string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[dev]
	if sl == nil {
		sl = &slot{genCh: make(chan struct{}, 1), queueCh: make(chan struct{}, s.cfg.MaxQueueDepth)}
		s.slots[dev] = sl
	}
	return sl
}

// admit reserves a queue slot and then the single in-flight slot for dev.
// Returns a release func to be deferred.
func (s *Service) admit(ctx context.Context, dev string) (func(), error) {
	sl := s.slotFor(dev)

	timer := time.NewTimer(s.cfg.MaxWait)
	defer timer.Stop()
	select {
	case sl.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{device: dev}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-sl.queueCh
		}
	}()
	select {
	case sl.genCh <- struct{}{}:
		acquired = true
		return func() { <-sl.genCh; <-sl.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{device: dev}
	}
}
