// Package solarinverter reads the inverter's active power register over
// modbus TCP. This is the local fallback for production data when the
// vendor API is unreachable; the inverter's wifi AP is flaky, so every read
// is ping-gated and retried.
package solarinverter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"
)

var (
	ErrNotConfigured = fmt.Errorf("inverter not configured")
	ErrReadFailed    = fmt.Errorf("inverter read failed")
)

const (
	maxRetries = 3
	cacheFor   = 10 * time.Second
)

type Reader struct {
	host     string
	port     int
	register uint16

	mu       sync.Mutex
	lastWatt int32
	lastRead time.Time
}

// NewReader returns a reader for the given inverter, or nil when the
// inverter is not configured. This feature is optional.
func NewReader(host string, port int, register uint16) *Reader {
	if host == "" || port == 0 {
		return nil
	}
	return &Reader{host: host, port: port, register: register}
}

// ReadPower returns the inverter's current active power in watt. Reads are
// cached briefly to avoid spamming the poor inverter.
func (r *Reader) ReadPower() (int32, error) {
	if r == nil {
		return 0, ErrNotConfigured
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRead.After(time.Now().Add(-cacheFor)) {
		return r.lastWatt, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(2 * time.Second)
		}

		if ok, err := ping(r.host); !ok || err != nil {
			lastErr = fmt.Errorf("ping failed on attempt %d: %w", attempt+1, err)
			continue
		}

		handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", r.host, r.port))
		handler.Timeout = 10 * time.Second
		handler.SlaveId = 0

		if err := handler.Connect(); err != nil {
			lastErr = fmt.Errorf("connection failed on attempt %d: %w", attempt+1, err)
			handler.Close()
			continue
		}

		// The inverter needs a moment after connecting before it will
		// answer register reads.
		time.Sleep(2 * time.Second)
		client := modbus.NewClient(handler)

		result, err := client.ReadHoldingRegisters(r.register, 2)
		handler.Close()
		if err != nil {
			lastErr = fmt.Errorf("read power failed on attempt %d: %w", attempt+1, err)
			continue
		}

		power := int32(result[0])<<24 | int32(result[1])<<16 | int32(result[2])<<8 | int32(result[3])
		r.lastWatt = power
		r.lastRead = time.Now()
		return power, nil
	}

	return 0, errors.Join(ErrReadFailed, lastErr)
}

func ping(host string) (bool, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, err
	}

	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false) // UDP-based, no root needed

	if err := pinger.Run(); err != nil {
		return false, err
	}
	if pinger.Statistics().PacketsRecv > 0 {
		return true, nil
	}
	return false, fmt.Errorf("no response")
}
