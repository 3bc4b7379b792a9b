package trace

import "time"

// StartHeartbeat emits a liveness record every interval while a
// long-running phase is active, named by phase and module. Stopped by
// StopHeartbeat or Close.
func (s *Sink) StartHeartbeat(scope string, interval time.Duration) {
	if !s.Enabled(Phase) || interval <= 0 {
		return
	}
	s.mu.Lock()
	if s.hbStop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.hbStop = stop
	s.mu.Unlock()

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				s.Emit(Phase, scope, "heartbeat")
			}
		}
	}()
}

// StopHeartbeat halts the liveness goroutine, if any.
func (s *Sink) StopHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hbStop != nil {
		close(s.hbStop)
		s.hbStop = nil
	}
}
