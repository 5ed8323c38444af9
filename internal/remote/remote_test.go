package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/errors"
)

// startConsole runs a console loop with no local input and returns it with a
// function that stops it and waits for the loop to exit.
func startConsole(t *testing.T) *console.Console {
	t.Helper()

	c := console.New(console.Options{Out: io.Discard})
	_, err := c.Register("echo\tPrint arguments", 1, 0, func(_ context.Context, w io.Writer, args []string) error {
		_, err := fmt.Fprintln(w, strings.Join(args, " "))
		return err
	})
	require.NoError(t, err)
	_, err = c.Register("exit\tExit application", 1, 0, func(_ context.Context, w io.Writer, _ []string) error {
		fmt.Fprint(w, "Exiting...\n\n")
		c.Stop()
		return nil
	})
	require.NoError(t, err)

	pr, pw := io.Pipe()
	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background(), pr) }()
	require.Eventually(t, c.Running, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		c.Stop()
		pw.Close()
		select {
		case <-errc:
		case <-time.After(5 * time.Second):
			t.Error("console loop did not stop")
		}
	})
	return c
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestRemoteExec(t *testing.T) {
	c := startConsole(t)
	ts := httptest.NewServer(NewServer(c, Options{}, nil))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, wsURL(ts, DefaultPath))
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, Banner, client.Banner())

	out, err := client.Exec(ctx, "echo over   the wire")
	require.NoError(t, err)
	assert.Equal(t, "over the wire\n", out)

	out, err = client.Exec(ctx, "bogus")
	require.NoError(t, err)
	assert.Equal(t, "Unknown command or bad parameter: 'bogus', see help! (?)\n", out)

	out, err = client.Exec(ctx, "?")
	require.NoError(t, err)
	assert.Contains(t, out, "Print this help (2/48)")

	out, err = client.Exec(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRemoteSessionsAreCounted(t *testing.T) {
	c := startConsole(t)
	srv := NewServer(c, Options{Path: "/cli"}, nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := Dial(ctx, wsURL(ts, "/cli"))
	require.NoError(t, err)
	b, err := Dial(ctx, wsURL(ts, "/cli"))
	require.NoError(t, err)

	assert.Equal(t, 2, srv.Sessions())

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return srv.Sessions() == 0 }, 2*time.Second, 10*time.Millisecond)

	_, err = Dial(ctx, wsURL(ts, DefaultPath))
	assert.Error(t, err, "only the configured path is served")
}

func TestRemoteOriginCheck(t *testing.T) {
	c := startConsole(t)
	ts := httptest.NewServer(NewServer(c, Options{AllowedOrigins: []string{"localhost:*"}}, nil))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial := func(origin string) (*http.Response, error) {
		conn, resp, err := websocket.Dial(ctx, wsURL(ts, DefaultPath), &websocket.DialOptions{
			HTTPHeader: http.Header{"Origin": []string{origin}},
		})
		if err == nil {
			conn.CloseNow()
		}
		return resp, err
	}

	resp, err := dial("http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, err = dial("http://localhost:3000")
	assert.NoError(t, err)
}

func TestRemoteExitEndsAttach(t *testing.T) {
	c := startConsole(t)
	ts := httptest.NewServer(NewServer(c, Options{}, nil))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader("echo hi\nexit\necho never\n")
	require.NoError(t, Attach(ctx, wsURL(ts, DefaultPath), in, &out, "> "))

	assert.Equal(t, Banner+"> hi\n> Exiting...\n\n> ", out.String())
	assert.False(t, c.Running())
}

func TestAttachUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := Attach(ctx, "ws://127.0.0.1:1/console", strings.NewReader(""), io.Discard, "")
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	c := startConsole(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewServer(c, Options{}, nil).Serve(ctx, ln) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, "ws://"+ln.Addr().String()+DefaultPath)
	require.NoError(t, err)
	defer client.conn.CloseNow()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestShutdownClosesIdleSessionsGoingAway(t *testing.T) {
	c := startConsole(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(c, Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	idle, err := Dial(dialCtx, "ws://"+ln.Addr().String()+DefaultPath)
	require.NoError(t, err)
	defer idle.conn.CloseNow()
	require.Eventually(t, func() bool { return srv.Sessions() == 1 }, time.Second, 5*time.Millisecond)

	// Same order as the command line: the loop ends, then the server.
	c.Stop()
	cancel()

	_, _, err = idle.conn.Read(dialCtx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Zero(t, srv.Sessions())
}

func TestClientSeesNotRunningAfterShutdown(t *testing.T) {
	c := startConsole(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewServer(c, Options{}, nil).Serve(ctx, ln) }()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	client, err := Dial(dialCtx, "ws://"+ln.Addr().String()+DefaultPath)
	require.NoError(t, err)
	defer client.conn.CloseNow()

	c.Stop()
	cancel()

	_, err = client.read(dialCtx)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrNotRunning), "got %v", err)

	select {
	case <-errc:
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}
}
