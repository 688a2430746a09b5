// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package can

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// wireFrame is the CBOR record carried in each binary websocket message.
type wireFrame struct {
	ID       uint32 `cbor:"id"`
	Extended bool   `cbor:"ext"`
	RTR      bool   `cbor:"rtr,omitempty"`
	Data     []byte `cbor:"data"`
}

func encodeWire(f Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return cbor.Marshal(wireFrame{ID: f.ID, Extended: f.Extended, RTR: f.RTR, Data: f.Data[:f.Len]})
}

func decodeWire(p []byte) (Frame, error) {
	var w wireFrame
	if err := cbor.Unmarshal(p, &w); err != nil {
		return Frame{}, fmt.Errorf("can: decode frame: %w", err)
	}
	if len(w.Data) > 8 {
		return Frame{}, ErrInvalidLen
	}
	f := Frame{ID: w.ID, Extended: w.Extended, RTR: w.RTR, Len: uint8(len(w.Data))}
	copy(f.Data[:], w.Data)
	return f, f.Validate()
}

// WebSocket carries CAN frames to and from a remote CAN gateway.
type WebSocket struct {
	errorCounter
	conn *websocket.Conn

	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

// DialWebSocket connects to a CAN gateway at rawURL (ws:// or wss://).
func DialWebSocket(ctx context.Context, rawURL string) (*WebSocket, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("can: invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("can: unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("can: websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("can: websocket connection failed: %w", err)
	}
	slog.Info("can: websocket connected", "url", rawURL)
	return newWebSocket(conn), nil
}

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

// AcceptWebSocket upgrades an HTTP request to a CAN frame link. It is the
// gateway side of DialWebSocket.
func AcceptWebSocket(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return newWebSocket(conn), nil
}

func newWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn, done: make(chan struct{})}
}

func (ws *WebSocket) Send(frame Frame) error {
	p, err := encodeWire(frame)
	if err != nil {
		ws.transmitError()
		return err
	}
	ws.wmu.Lock()
	defer ws.wmu.Unlock()
	if err := ws.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		ws.transmitError()
		if ws.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("can: websocket write: %w", err)
	}
	return nil
}

// Receive returns the next frame. Text messages and undecodable records
// are skipped.
func (ws *WebSocket) Receive() (Frame, error) {
	for {
		messageType, data, err := ws.conn.ReadMessage()
		if err != nil {
			if ws.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return Frame{}, ErrClosed
			}
			return Frame{}, fmt.Errorf("can: websocket read: %w", err)
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		f, err := decodeWire(data)
		if err != nil {
			ws.receiveError()
			slog.Debug("can: dropping websocket message", "err", err)
			continue
		}
		return f, nil
	}
}

func (ws *WebSocket) isClosed() bool {
	select {
	case <-ws.done:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) Close() (err error) {
	ws.once.Do(func() {
		close(ws.done)
		ws.wmu.Lock()
		ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		ws.wmu.Unlock()
		err = ws.conn.Close()
	})
	return
}
