package remote

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/coder/websocket"

	"github.com/conneroisu/ptpconsole/internal/errors"
)

// Client is one remote console session.
type Client struct {
	conn   *websocket.Conn
	banner string
}

// Dial opens a session at url (ws:// or wss://) and reads the banner.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, errors.NewNetworkError("cannot connect to "+url, err)
	}
	conn.SetReadLimit(-1)

	c := &Client{conn: conn}
	banner, err := c.read(ctx)
	if err != nil {
		conn.CloseNow()
		return nil, err
	}
	c.banner = banner
	return c, nil
}

// Banner returns the greeting sent by the server.
func (c *Client) Banner() string {
	return c.banner
}

// Exec sends one line and waits for its output.
func (c *Client) Exec(ctx context.Context, line string) (string, error) {
	if err := c.conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
		if websocket.CloseStatus(err) == websocket.StatusGoingAway {
			return "", errors.NewNotRunningError()
		}
		return "", errors.NewNetworkError("send failed", err)
	}
	return c.read(ctx)
}

// Close ends the session.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) read(ctx context.Context) (string, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusGoingAway {
			return "", errors.NewNotRunningError()
		}
		return "", errors.NewNetworkError("receive failed", err)
	}
	return string(data), nil
}

// Attach runs an interactive session: lines read from in are sent to the
// server and replies are copied to out, until in is exhausted, ctx ends or
// the server goes away. A server that stops the console ends the session
// without error.
func Attach(ctx context.Context, url string, in io.Reader, out io.Writer, prompt string) error {
	client, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Fprint(out, client.Banner())
	fmt.Fprint(out, prompt)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		output, err := client.Exec(ctx, line)
		fmt.Fprint(out, output)
		if err != nil {
			if stderrors.Is(err, errors.ErrNotRunning) {
				return nil
			}
			return err
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}
