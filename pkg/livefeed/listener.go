package livefeed

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbruggen/homeflux/pkg/types"
)

// Feed holds the most recent reading received from the live stream. The
// collector samples it at its own cadence; the stream may tick faster.
type Feed struct {
	mu     sync.RWMutex
	latest *types.Sample
}

// Latest returns the newest reading, if any has arrived yet.
func (f *Feed) Latest() (types.Sample, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return types.Sample{}, false
	}
	return *f.latest, true
}

// Next returns the newest reading, provided it is newer than the epoch the
// caller consumed last. A feed that stopped advancing means the stream or
// the serial reader behind it died, so a stale reading is an error, not a
// sample.
func (f *Feed) Next(lastEpoch int64) (types.Sample, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.latest == nil {
		return types.Sample{}, fmt.Errorf("no reading from live feed yet")
	}
	if f.latest.SampleEpoch <= lastEpoch {
		return types.Sample{}, fmt.Errorf("live feed stalled at %s", f.latest.SampleTime)
	}
	return *f.latest, nil
}

func (f *Feed) put(s *types.Sample) {
	f.mu.Lock()
	f.latest = s
	f.mu.Unlock()
}

// Listen keeps a websocket subscription to the live feed alive, filling the
// Feed with each reading. Connection loss is retried with exponential
// backoff; the loop ends when done is closed.
func Listen(host string, feed *Feed, done <-chan struct{}) {
	const (
		baseRetryDelay = 2 * time.Second
		maxRetryDelay  = 60 * time.Second
		readDeadline   = 10 * time.Second
	)

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	retryCount := 0

	for {
		select {
		case <-done:
			return
		default:
		}

		if retryCount > 0 {
			retryDelay := time.Duration(1<<uint(retryCount)) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
			log.Printf("Retrying live feed connection in %v (attempt %d)", retryDelay, retryCount+1)
			select {
			case <-time.After(retryDelay):
			case <-done:
				return
			}
		}

		log.Printf("Connecting to %s", u.String())
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.Dial(u.String(), nil)
		if err != nil {
			log.Printf("Live feed connection failed: %v", err)
			retryCount++
			continue
		}

		log.Println("Connected to live feed")
		retryCount = 0

		// The feed sends a reading every second; a quiet connection is a
		// dead connection.
		c.SetReadDeadline(time.Now().Add(readDeadline))
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				log.Printf("Live feed connection lost: %v", err)
				break
			}
			c.SetReadDeadline(time.Now().Add(readDeadline))
			if messageType != websocket.TextMessage {
				continue
			}
			var s types.Sample
			if err := json.Unmarshal(message, &s); err != nil {
				log.Printf("Failed to parse live reading: %s", string(message))
				continue
			}
			feed.put(&s)
		}
		c.Close()

		select {
		case <-done:
			return
		default:
			retryCount++
		}
	}
}
