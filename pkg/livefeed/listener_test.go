package livefeed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbruggen/homeflux/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestFeed_LatestBeforeAnyReading(t *testing.T) {
	feed := &Feed{}
	_, ok := feed.Latest()
	require.False(t, ok)
}

func TestFeed_NextRejectsStalledStream(t *testing.T) {
	feed := &Feed{}

	_, err := feed.Next(0)
	require.Error(t, err)

	reading := types.NewSample(time.Now(), map[string]float64{"T1in": 175402})
	feed.put(&reading)

	smp, err := feed.Next(0)
	require.NoError(t, err)
	require.Equal(t, float64(175402), smp.Field("T1in", -1))

	// no new reading arrived since the last consume; the feed is dead, not
	// quietly repeating itself
	_, err = feed.Next(smp.SampleEpoch)
	require.ErrorContains(t, err, "stalled")

	fresh := types.NewSample(time.Now().Add(time.Second), nil)
	feed.put(&fresh)
	_, err = feed.Next(smp.SampleEpoch)
	require.NoError(t, err)
}

func TestListen_FillsFeedFromStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		reading := types.NewSample(time.Now(), map[string]float64{"T1in": 175402})
		require.NoError(t, conn.WriteJSON(reading))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	feed := &Feed{}
	done := make(chan struct{})
	defer close(done)
	go Listen(strings.TrimPrefix(srv.URL, "http://"), feed, done)

	require.Eventually(t, func() bool {
		smp, ok := feed.Latest()
		return ok && smp.Field("T1in", -1) == 175402
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DropsFailedClients(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hub := NewHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Add(conn)
	}))
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(u+"/ws", nil)
	require.NoError(t, err)

	reading := types.NewSample(time.Now(), map[string]float64{"powerin": 1193})
	hub.Broadcast(&reading)

	var got types.Sample
	require.NoError(t, client.ReadJSON(&got))
	require.Equal(t, float64(1193), got.Field("powerin", -1))

	// a closed client gets dropped on the next broadcast
	client.Close()
	require.Eventually(t, func() bool {
		hub.Broadcast(&reading)
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.clients) == 0
	}, 2*time.Second, 50*time.Millisecond)
}
