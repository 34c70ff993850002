package scheduler

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Killer turns SIGINT/SIGTERM into a cooperative kill flag that the poll
// loop checks once per tick. There is no mid-I/O cancellation.
type Killer struct {
	killed atomic.Bool
}

// NewKiller installs the signal handler and returns the flag.
func NewKiller() *Killer {
	k := &Killer{}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		k.killed.Store(true)
	}()
	return k
}

// KillNow reports whether termination was requested.
func (k *Killer) KillNow() bool {
	return k.killed.Load()
}

// Kill sets the flag directly. Used by tests and internal shutdown paths.
func (k *Killer) Kill() {
	k.killed.Store(true)
}
