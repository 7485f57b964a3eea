package bot

import "sync/atomic"

// LoopState is the lifecycle state of the recognition loop
type LoopState int32

const (
	StateRunning LoopState = iota
	StateStopped           // Terminal
)

func (s LoopState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// loopState holds the current state; the only transition is RUNNING -> STOPPED
type loopState struct {
	state atomic.Int32
}

func (ls *loopState) Get() LoopState {
	return LoopState(ls.state.Load())
}

// Stop moves to STOPPED and reports whether this call made the transition
func (ls *loopState) Stop() bool {
	return ls.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
}
