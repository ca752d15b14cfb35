package provisioning

import "sync"

// Signal is the write-once completion flag shared between the portal
// handler and the server's poll loop.
type Signal struct {
	mu   sync.Mutex
	done bool
}

// Complete marks provisioning as done. It reports true only for the call
// that performed the transition.
func (s *Signal) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.done = true
	return true
}

func (s *Signal) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
