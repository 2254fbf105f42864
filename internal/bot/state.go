package bot

import "sync/atomic"

// ServiceState gates command execution. Suspension is a command-layer
// concern: the sweeper and the presence watcher keep running regardless.
type ServiceState struct {
	suspended atomic.Bool
}

func (s *ServiceState) Suspend()        { s.suspended.Store(true) }
func (s *ServiceState) Resume()         { s.suspended.Store(false) }
func (s *ServiceState) Suspended() bool { return s.suspended.Load() }

func (s *ServiceState) String() string {
	if s.Suspended() {
		return "suspended"
	}
	return "active"
}
