// Transport implements the relay's persistent bidirectional stream over
// gorilla/websocket. Reconnect/backoff policy belongs to the client; this
// file only wires the frame-level read/write loop, one goroutine per
// connection: reads block for the next frame, and writes are serialized
// and bounded by writeTimeout.
package relay

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeTimeout bounds a single frame write, preventing one slow client
// from blocking the connection's cooperative event loop indefinitely.
const writeTimeout = 10 * time.Second

// Conn wraps a single client connection's websocket stream, serializing
// writes so replies on one connection are delivered in arrival order.
type Conn struct {
	ID  string
	ws  *websocket.Conn
	log *slog.Logger

	writeMu chan struct{} // 1-buffered semaphore; see WriteFrame
}

// Upgrade promotes an HTTP request to a websocket connection and wraps it.
func Upgrade(w http.ResponseWriter, r *http.Request, id string, log *slog.Logger) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Conn{ID: id, ws: ws, log: log, writeMu: make(chan struct{}, 1)}
	c.writeMu <- struct{}{}
	return c, nil
}

// ReadFrame blocks for the next text frame's raw bytes.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// WriteFrame sends a single already-encoded JSON frame, serialized against
// concurrent writers on this connection (the relay's broadcast path and its
// own request/response path can both want to write at once).
func (c *Conn) WriteFrame(frame []byte) error {
	<-c.writeMu
	defer func() { c.writeMu <- struct{}{} }()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Close tears down the underlying websocket connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
