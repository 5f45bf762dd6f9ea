package hmrsocket_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/spark/internal/adapters/hmrsocket"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type acceptCall struct {
	url      string
	accepted bool
}

type acceptRecorder chan acceptCall

func (r acceptRecorder) SetAccepted(url string, accepted bool) {
	r <- acceptCall{url: url, accepted: accepted}
}

func setupHub(t *testing.T, opts ...hmrsocket.Option) (*hmrsocket.Hub, string) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)

	hub := hmrsocket.NewHub(logger, opts...)
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	var hello domain.Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, domain.MessageConnected, hello.Type)
	return conn
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, url := setupHub(t)
	first := dial(t, url)
	second := dial(t, url)
	require.Equal(t, 2, hub.ClientCount())

	hub.Broadcast(domain.NewUpdateMessage("/src/a.js", true))

	for _, conn := range []*websocket.Conn{first, second} {
		var msg domain.Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, domain.NewUpdateMessage("/src/a.js", true), msg)
	}
}

func TestHub_WireFormat(t *testing.T) {
	hub, url := setupHub(t)
	conn := dial(t, url)

	hub.Broadcast(domain.NewReloadMessage())

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reload"}`, string(data))

	hub.Broadcast(domain.NewUpdateMessage("/a.js", true))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","url":"/a.js","bubbled":true}`, string(data))

	hub.Broadcast(domain.NewRootUpdateMessage("/main.js", false))
	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","url":"/main.js","root":true}`, string(data))
}

func TestHub_HotAcceptIsRecorded(t *testing.T) {
	rec := make(acceptRecorder, 1)
	_, url := setupHub(t, hmrsocket.WithAcceptRecorder(rec))
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(domain.ClientMessage{
		Type: domain.MessageHotAccept,
		ID:   "http://localhost:8080/src/a.js?mtime=1",
	}))

	select {
	case call := <-rec:
		assert.Equal(t, acceptCall{url: "/src/a.js", accepted: true}, call)
	case <-time.After(5 * time.Second):
		t.Fatal("hotAccept was not forwarded")
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := setupHub(t)
	conn := dial(t, url)
	require.Equal(t, 1, hub.ClientCount())

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHub_MetricsPerBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	metrics := mocks.NewMockMetrics(ctrl)
	metrics.EXPECT().ObserveBroadcast("reload").Times(1)

	hub, _ := setupHub(t, hmrsocket.WithMetrics(metrics))
	hub.Broadcast(domain.NewReloadMessage())
}
