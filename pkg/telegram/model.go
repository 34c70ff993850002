package telegram

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/mbruggen/homeflux/pkg/types"
)

// Reader owns the P1 serial port and keeps the running register state
// between telegrams. Registers that are absent from a telegram keep their
// last known value; they only change *if* present.
type Reader struct {
	device     string
	baudrate   uint
	serialPort io.ReadWriteCloser

	fields map[string]float64

	latestReading *types.Sample
	readingMutex  sync.RWMutex

	// stopSignal is raised from outside the reader goroutine
	stopSignal atomic.Bool
}
