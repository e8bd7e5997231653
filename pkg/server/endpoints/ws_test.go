package endpoints

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/stream"
)

type wsMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, ts *testServer) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(ts.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	greeting := readEvent(t, conn, stream.EventStatus)
	assert.JSONEq(t, `{"message":"Connected to server","type":"success"}`, string(greeting.Data))
	return conn
}

// readEvent reads messages until one carries event.
func readEvent(t *testing.T, conn *websocket.Conn, event string) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var m wsMessage
		require.NoError(t, conn.ReadJSON(&m))
		if m.Event == event {
			return m
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

func TestWebSocketRunMarathon(t *testing.T) {
	ts := newTestServer(t)
	ts.expectRecord()
	conn := dial(t, ts)

	send(t, conn, EventRunMarathon, map[string]interface{}{
		"serials":       "HEXP1\nHEXP2\nHEXP3",
		"odoo_email":    "op@example.com",
		"odoo_password": "pw",
	})

	step := readEvent(t, conn, stream.EventStatus)
	assert.Contains(t, string(step.Data), "Logging in")

	done := readEvent(t, conn, stream.EventMarathonComplete)
	var complete struct {
		Success bool   `json:"success"`
		Count   int    `json:"count"`
		Product string `json:"product"`
	}
	require.NoError(t, json.Unmarshal(done.Data, &complete))
	assert.True(t, complete.Success)
	assert.Equal(t, 3, complete.Count)
	assert.Equal(t, "HEX-P", complete.Product)
}

func TestWebSocketRunMarathonRefused(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, EventRunMarathon, map[string]interface{}{"serials": "HEXP1"})

	status := readEvent(t, conn, stream.EventStatus)
	assert.JSONEq(t, `{"message":"Odoo credentials required","type":"error"}`, string(status.Data))

	done := readEvent(t, conn, stream.EventMarathonComplete)
	assert.Contains(t, string(done.Data), `"success":false`)
	assert.Empty(t, ts.Driver.requests())
}

func TestWebSocketVerifySerials(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, EventVerifySerials, map[string]interface{}{
		"serials":        []string{"HEXP1", "HEXP9"},
		"session_cookie": "sid",
		"csrf_token":     "tok",
	})

	done := readEvent(t, conn, stream.EventVerifyComplete)
	var resp VerifyResponse
	require.NoError(t, json.Unmarshal(done.Data, &resp))
	assert.Equal(t, 1, resp.Summary.Passed)
	assert.Equal(t, 1, resp.Summary.Failed)
	assert.Empty(t, resp.Error)
}

func TestWebSocketVerifyWithoutSerials(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, EventVerifySerials, map[string]interface{}{"serials": ""})

	done := readEvent(t, conn, stream.EventVerifyComplete)
	assert.Contains(t, string(done.Data), `"error":"No serials"`)
}

func TestWebSocketUnknownEvent(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, "reboot", nil)

	status := readEvent(t, conn, stream.EventStatus)
	assert.JSONEq(t, `{"message":"unknown event reboot","type":"error"}`, string(status.Data))
}
