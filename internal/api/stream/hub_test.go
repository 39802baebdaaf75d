package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/homescan/internal/contracts"
	"github.com/wonny/homescan/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, hub, 2)

	summary := contracts.RunSummary{RunID: "run-1", TotalSample: 3}
	require.NoError(t, hub.Broadcast(summary))

	for _, conn := range []*websocket.Conn{a, b} {
		var got contracts.RunSummary
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "run-1", got.RunID)
		assert.Equal(t, 3, got.TotalSample)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(logger.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHub_BroadcastUnencodable(t *testing.T) {
	hub := NewHub(logger.Nop())
	assert.Error(t, hub.Broadcast(make(chan int)))
}
