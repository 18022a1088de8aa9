package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/txtof/internal/testutils"
)

const form = testutils.ContactForm

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRebuildSkipsUnchangedOutput(t *testing.T) {
	input := testutils.CreateTestInput(t, form)
	s := New(testutils.CreateTestConfig(), input, "", nil)
	ctx := context.Background()

	changed, err := s.Rebuild(ctx)
	require.NoError(t, err)
	assert.True(t, changed, "first render always counts as a change")

	changed, err = s.Rebuild(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	// A comment line does not change the output.
	require.NoError(t, os.WriteFile(input, []byte("=draft\n"+form), 0644))
	changed, err = s.Rebuild(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(input, []byte(form+"\n|{More}\n"), 0644))
	changed, err = s.Rebuild(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestRebuildPicksUpTemplateFile(t *testing.T) {
	input := testutils.CreateTestInput(t, "|{Hi}")
	tmpl := filepath.Join(filepath.Dir(input), "tmpl.yml")
	require.NoError(t, os.WriteFile(tmpl, []byte("label: '<b>{{.Value}}</b>'\n"), 0644))

	s := New(testutils.CreateTestConfig(), input, tmpl, nil)
	_, err := s.Rebuild(context.Background())
	require.NoError(t, err)

	output, _, _ := s.snapshot()
	assert.Contains(t, string(output), "<b>Hi</b>")

	require.NoError(t, os.WriteFile(tmpl, []byte("label: '<i>{{.Value}}</i>'\n"), 0644))
	changed, err := s.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	output, _, _ = s.snapshot()
	assert.Contains(t, string(output), "<i>Hi</i>")
}

func TestHandler(t *testing.T) {
	s := New(testutils.CreateTestConfig(), testutils.CreateTestInput(t, form), "", nil)
	_, err := s.Rebuild(context.Background())
	require.NoError(t, err)
	h := s.Handler()

	t.Run("index", func(t *testing.T) {
		rec := get(t, h, "/", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<title>form.txt - txtof preview</title>")
		assert.Contains(t, body, `<section class="page" id="contact">`)
		assert.Contains(t, body, `'/ws'`)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

		tag := rec.Header().Get("ETag")
		require.NotEmpty(t, tag)
		again := get(t, h, "/", http.Header{"If-None-Match": {tag}})
		assert.Equal(t, http.StatusNotModified, again.Code)
		assert.Empty(t, again.Body.String())
	})

	t.Run("raw", func(t *testing.T) {
		output, _, _ := s.snapshot()
		rec := get(t, h, "/raw", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, string(output), rec.Body.String())
		assert.NotEqual(t, get(t, h, "/", nil).Header().Get("ETag"), rec.Header().Get("ETag"))
	})

	t.Run("health", func(t *testing.T) {
		rec := get(t, h, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var health map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
		assert.Equal(t, "healthy", health["status"])
		assert.Equal(t, float64(0), health["clients"])
		assert.NotContains(t, health, "error")
	})

	t.Run("unknown path", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, h, "/missing", nil).Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestRenderFailureIsServed(t *testing.T) {
	input := testutils.CreateTestInput(t, form)
	s := New(testutils.CreateTestConfig(), input, "", nil)
	_, err := s.Rebuild(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(input))
	changed, err := s.Rebuild(context.Background())
	require.Error(t, err)
	assert.True(t, changed)

	h := s.Handler()

	rec := get(t, h, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `<pre class="txtof-error">`)
	assert.Contains(t, rec.Body.String(), `'/ws'`, "error page still reloads")

	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/raw", nil).Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(get(t, h, "/health", nil).Body.Bytes(), &health))
	assert.Equal(t, "failing", health["status"])
	assert.NotEmpty(t, health["error"])

	// The same failure does not reload again.
	changed, err = s.Rebuild(context.Background())
	require.Error(t, err)
	assert.False(t, changed)
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	opts := &websocket.DialOptions{}
	if origin != "" {
		opts.HTTPHeader = http.Header{"Origin": {origin}}
	}
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+ReloadPath, opts)
}

func TestReloadBroadcast(t *testing.T) {
	input := testutils.CreateTestInput(t, form)
	s := New(testutils.CreateTestConfig(), input, "", nil)
	_, err := s.Rebuild(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := dial(t, ctx, srv, srv.URL)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(input, []byte(form+"|{Extra}\n"), 0644))
	changed, err := s.Rebuild(ctx)
	require.NoError(t, err)
	require.True(t, changed)

	readCtx, readCancel := context.WithTimeout(ctx, 2*time.Second)
	defer readCancel()
	typ, data, err := conn.Read(readCtx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "reload", msg.Type)
	assert.NotEmpty(t, msg.Hash)
	assert.Empty(t, msg.Error)
	assert.False(t, msg.Timestamp.IsZero())

	// Closing the socket unregisters the client.
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return s.Hub().ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginCheck(t *testing.T) {
	s := New(testutils.CreateTestConfig(), testutils.CreateTestInput(t, form), "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub().Run(ctx)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, origin := range []string{"", "http://evil.example", "file://" + srv.Listener.Addr().String()} {
		t.Run(origin, func(t *testing.T) {
			conn, resp, err := dial(t, ctx, srv, origin)
			require.Error(t, err)
			assert.Nil(t, conn)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestHubStopClosesClients(t *testing.T) {
	s := New(testutils.CreateTestConfig(), testutils.CreateTestInput(t, form), "", nil)
	hub := s.Hub()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(context.Background())
	}()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx := context.Background()
	conn, _, err := dial(t, ctx, srv, srv.URL)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The client must keep reading for the close handshake to complete.
	readErr := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(ctx)
		readErr <- err
	}()

	hub.Stop()
	hub.Stop()
	wg.Wait()

	assert.Zero(t, hub.ClientCount())
	select {
	case err := <-readErr:
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	case <-time.After(5 * time.Second):
		t.Fatal("client was not closed")
	}

	// Broadcasting after the hub stopped is a no-op.
	assert.NotPanics(t, func() { hub.Broadcast(UpdateMessage{Type: "reload"}) })
}

func TestHubRefusesClientsOnceClosed(t *testing.T) {
	s := New(testutils.CreateTestConfig(), testutils.CreateTestInput(t, form), "", nil)
	hub := s.Hub()

	// Run has closed its clients but done is not closed yet.
	hub.closeAll()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := dial(t, ctx, srv, srv.URL)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, _, err = conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusServiceRestart, websocket.CloseStatus(err))
	assert.Zero(t, hub.ClientCount())
}

func TestStartAndShutdown(t *testing.T) {
	input := testutils.CreateTestInput(t, form)
	s := New(testutils.CreateTestConfig(), input, "", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/raw")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `id="contact"`)

	// The watcher re-renders on change.
	require.NoError(t, os.WriteFile(input, []byte("#Other\n|{x}\n"), 0644))
	require.Eventually(t, func() bool {
		output, _, _ := s.snapshot()
		return strings.Contains(string(output), `id="other"`)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestStartFailsOnBrokenInput(t *testing.T) {
	s := New(testutils.CreateTestConfig(), filepath.Join(t.TempDir(), "missing.txt"), "", nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.Addr())
}
