package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/mimic/pkg/mimic"
	"github.com/chosenoffset/mimic/pkg/mimic/metrics"
)

const drawing = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="40">
  <rect id="tank" data-rtmt-binding-id="A" data-rtmt-fill-color-1="$value GTE 50 := red" data-rtmt-fill-color-2=":= green"/>
  <text id="label" data-rtmt-binding-id="A" data-rtmt-text=":= $value">-</text>
</svg>`

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	server    *Server
	http      *httptest.Server
	mimic     *mimic.Controller
	collector *metrics.Collector
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	collector := metrics.NewCollector()
	c := mimic.NewController(&mimic.BytesSource{Data: []byte(drawing)},
		mimic.WithLogger(quiet()), mimic.WithRecorder(collector))
	require.NoError(t, c.Initialise(context.Background()))

	opts = append([]Option{WithLogger(quiet()), WithCollector(collector)}, opts...)
	s := NewServer("127.0.0.1:0", c, opts...)
	go s.Run()

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Stop()
		srv.Close()
	})
	return &fixture{server: s, http: srv, mimic: c, collector: collector}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(f.http.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (f *fixture) post(t *testing.T, body string) (*http.Response, UpdateResponse) {
	t.Helper()
	resp, err := http.Post(f.http.URL+"/api/update", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out UpdateResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestIndexServesHostPage(t *testing.T) {
	f := newFixture(t, WithTitle("Plant"))

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xhtml+xml")
	assert.Contains(t, body, "<title>Plant</title>")
	assert.Contains(t, body, `<div id="mimic">`)
	assert.Contains(t, body, `data-rtmt-binding-id="A"`)
	assert.Contains(t, body, "<![CDATA[")
}

func TestSVGAndAPI(t *testing.T) {
	f := newFixture(t)

	resp, body := f.get(t, "/mimic.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `id="tank"`)

	resp, body = f.get(t, "/api/bindings")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","data":["A"]}`, body)

	resp, body = f.get(t, "/api/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"initialised":true`)
	assert.Contains(t, body, `"clients":0`)

	resp, err := http.Post(f.http.URL+"/api/bindings", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestUpdateEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, out := f.post(t, `{"A": {"value": 72}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out.Status)
	assert.NotEmpty(t, out.Cycle)
	assert.Empty(t, out.Errors)

	_, body := f.get(t, "/mimic.svg")
	assert.Contains(t, body, `fill="red"`)
	assert.Contains(t, body, ">72</text>")

	resp, _ = f.post(t, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.post(t, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateEndpointReportsRuleErrors(t *testing.T) {
	svg := `<svg><circle data-rtmt-binding-id="B" data-rtmt-blink=":= $value" data-rtmt-text=":= $value"/></svg>`
	c := mimic.NewController(&mimic.BytesSource{Data: []byte(svg)}, mimic.WithLogger(quiet()))
	require.NoError(t, c.Initialise(context.Background()))
	s := NewServer("127.0.0.1:0", c, WithLogger(quiet()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	f := &fixture{server: s, http: srv, mimic: c}

	resp, out := f.post(t, `{"B": {"value": "not-a-colour"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "partial", out.Status)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0], "blink")
}

func TestWebSocketPushesFrames(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	first := readMessage(t, conn)
	assert.Equal(t, "mimic", first.Type)
	assert.Contains(t, first.SVG, ">-</text>")

	require.NoError(t, f.server.Update(mimic.Batch{"A": {"value": 12}}))

	next := readMessage(t, conn)
	assert.Contains(t, next.SVG, ">12</text>")
	assert.Contains(t, next.SVG, `fill="green"`)
	assert.Equal(t, f.mimic.Status().LastCycle, next.Cycle)
	assert.Equal(t, uint64(1), next.Status.Updates)
}

func TestWebSocketClientLimit(t *testing.T) {
	f := newFixture(t, WithMaxClients(1))
	conn := f.dial(t)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return f.server.Clients() == 1 }, time.Second, 5*time.Millisecond)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	conn.Close()
	assert.Eventually(t, func() bool { return f.server.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	readMessage(t, conn)

	require.NoError(t, f.server.Stop())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/status")
	f.post(t, `{"A": {"value": 1}}`)

	_, body := f.get(t, "/metrics")
	assert.Contains(t, body, `mimic_http_requests_total{code="200",route="status"} 1`)
	assert.Contains(t, body, "mimic_updates_total 1")
	assert.Contains(t, body, "mimic_bindings 1")
}

func TestNotLoaded(t *testing.T) {
	c := mimic.NewController(&mimic.BytesSource{Data: []byte(drawing)}, mimic.WithLogger(quiet()))
	s := NewServer("127.0.0.1:0", c, WithLogger(quiet()))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/", "/mimic.svg"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestStopBeforeServe(t *testing.T) {
	c := mimic.NewController(&mimic.BytesSource{Data: []byte(drawing)}, mimic.WithLogger(quiet()))
	s := NewServer("127.0.0.1:0", c, WithLogger(quiet()))
	require.NoError(t, s.Stop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(ln) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept running after Stop")
	}
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		host, origin string
		want         bool
	}{
		{"plant:9090", "", true},
		{"plant:9090", "http://plant:9090", true},
		{"plant:9090", "https://plant", true},
		{"plant:9090", "http://localhost:3000", false},
		{"plant:9090", "http://127.0.0.1:3000", false},
		{"localhost:9090", "http://127.0.0.1:3000", true},
		{"127.0.0.1:9090", "http://localhost", true},
		{"[::1]:9090", "http://[::1]:3000", true},
		{"[::1]:9090", "http://plant", false},
		{"plant:9090", "http://evil.example", false},
		{"plant:9090", "file://", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, sameOrigin(r), "%s from %s", tt.host, tt.origin)
	}
}
