package main

import (
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// wsConn carries the same frames over WebSocket messages. Each inbound
// message holds one or more newline-delimited frames; the last one may omit
// its newline.
type wsConn struct {
	conn   *websocket.Conn
	ip     string
	binary bool
	out    outbox
}

func newWSConn(conn *websocket.Conn, ip string, binary bool) *wsConn {
	c := &wsConn{
		conn:   conn,
		ip:     ip,
		binary: binary,
		out:    newOutbox(),
	}
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go c.writePump()
	return c
}

func (c *wsConn) ReadChunk() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Printf("ws error: %v", err)
		}
		return nil, err
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg = append(msg, '\n')
	}
	return msg, nil
}

func (c *wsConn) Send(data []byte, binary bool) error {
	return c.out.push(outFrame{data: data, binary: binary})
}

func (c *wsConn) Close() error {
	if c.out.shutdown() {
		return c.conn.Close()
	}
	return nil
}

func (c *wsConn) RemoteIP() string  { return c.ip }
func (c *wsConn) WantsBinary() bool { return c.binary }

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.out.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			msgType := websocket.TextMessage
			if f.binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, f.data); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.out.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// serveWS upgrades the request and admits the client like a TCP peer.
// ?enc=msgpack selects binary state frames.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !s.hub.TryConnect(ip) {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		s.hub.TrackDisconnect(ip)
		return
	}

	c := newWSConn(conn, ip, r.URL.Query().Get("enc") == "msgpack")
	if id, ok := s.admit(c); ok {
		go s.handleConn(id, c)
	}
}
