package bridge

// FaultStack carries a host fault across the native frames between the
// callback that raised it and the host call that entered native code.
// Native code cannot transport a Go error, so the trampoline parks the
// error here, the address space unwinds with a pending-fault status, and
// the originating Call picks the error back up unchanged.
//
// Only the first recorded fault is kept: with nested callbacks the
// innermost error is the root cause, and re-records during unwinding must
// not mask it.
type FaultStack struct {
	fault error
}

// Record parks err unless a fault is already pending.
func (s *FaultStack) Record(err error) {
	if s.fault == nil {
		s.fault = err
	}
}

// Take removes and returns the pending fault, or nil.
func (s *FaultStack) Take() error {
	err := s.fault
	s.fault = nil
	return err
}

// Pending reports whether a fault is parked.
func (s *FaultStack) Pending() bool { return s.fault != nil }
