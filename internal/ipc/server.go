package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Streamer provides the parameter-snapshot feed served to `watch`
// clients. Subscribe returns a payload channel and a release function.
type Streamer interface {
	Subscribe() (<-chan []byte, func())
}

// WatchCommand switches a connection into streaming mode: after the
// initial response, the server writes one JSON snapshot line per
// parameter update until the client disconnects.
const WatchCommand = "watch"

// Serve accepts unix-socket clients until context cancellation or
// listener close. Regular requests are one round trip per connection;
// watch requests hold the connection open for the snapshot stream.
func Serve(ctx context.Context, listener net.Listener, handler Handler, streamer Streamer) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()

			reader := bufio.NewReader(c)
			line, err := reader.ReadBytes('\n')
			if err != nil {
				_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
				return
			}

			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				_ = json.NewEncoder(c).Encode(Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
				return
			}

			if req.Command == WatchCommand && streamer != nil {
				serveWatch(ctx, c, streamer)
				return
			}

			resp := handler.Handle(ctx, req)
			_ = json.NewEncoder(c).Encode(resp)
		}(conn)
	}
}

// serveWatch streams snapshot lines until the subscription or the
// connection goes away. A failed write means the client left.
func serveWatch(ctx context.Context, conn net.Conn, streamer Streamer) {
	updates, release := streamer.Subscribe()
	defer release()

	if err := json.NewEncoder(conn).Encode(Response{OK: true, Message: "watching"}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updates:
			if !ok {
				return
			}
			if _, err := conn.Write(append(payload, '\n')); err != nil {
				return
			}
		}
	}
}
