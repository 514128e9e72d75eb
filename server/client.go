package main

import (
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

const (
	writeWait   = 10 * time.Second
	readBufSize = 4096
	sendBufSize = 256
)

var (
	errConnClosed    = errors.New("connection closed")
	errSendQueueFull = errors.New("send queue full")
)

// Conn is one client's duplex stream as the server sees it. Send never
// blocks: it queues the frame for the connection's write pump.
type Conn interface {
	// ReadChunk blocks for the next inbound bytes. The slice is only valid
	// until the next call.
	ReadChunk() ([]byte, error)
	Send(data []byte, binary bool) error
	Close() error
	RemoteIP() string
	// WantsBinary reports whether state frames should be sent as msgpack
	WantsBinary() bool
}

type outFrame struct {
	data   []byte
	binary bool
}

// outbox is the bounded send queue shared by every transport
type outbox struct {
	send chan outFrame
	done chan struct{}
	once sync.Once
}

func newOutbox() outbox {
	return outbox{
		send: make(chan outFrame, sendBufSize),
		done: make(chan struct{}),
	}
}

func (o *outbox) push(f outFrame) error {
	select {
	case <-o.done:
		return errConnClosed
	default:
	}
	select {
	case o.send <- f:
		return nil
	default:
		// Client too slow, drop frame
		return errSendQueueFull
	}
}

// shutdown reports true only for the first call
func (o *outbox) shutdown() bool {
	first := false
	o.once.Do(func() {
		close(o.done)
		first = true
	})
	return first
}

// tcpConn carries newline-delimited JSON over a raw TCP stream
type tcpConn struct {
	conn net.Conn
	ip   string
	buf  []byte
	out  outbox
}

func newTCPConn(conn net.Conn) *tcpConn {
	c := &tcpConn{
		conn: conn,
		ip:   hostOnly(conn.RemoteAddr().String()),
		buf:  make([]byte, readBufSize),
		out:  newOutbox(),
	}
	go c.writePump()
	return c
}

func (c *tcpConn) ReadChunk() ([]byte, error) {
	n, err := c.conn.Read(c.buf)
	if n > 0 {
		return c.buf[:n], nil
	}
	return nil, err
}

func (c *tcpConn) Send(data []byte, binary bool) error {
	if binary {
		return errors.New("tcp transport carries text frames only")
	}
	return c.out.push(outFrame{data: data})
}

func (c *tcpConn) Close() error {
	if c.out.shutdown() {
		return c.conn.Close()
	}
	return nil
}

func (c *tcpConn) RemoteIP() string  { return c.ip }
func (c *tcpConn) WantsBinary() bool { return false }

// writePump writes queued frames until the connection closes. A write error
// closes the socket so the read side unblocks and cleans up.
func (c *tcpConn) writePump() {
	for {
		select {
		case f := <-c.out.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.conn.Write(f.data); err != nil {
				log.Printf("write to %s failed: %v", c.ip, err)
				c.Close()
				return
			}
		case <-c.out.done:
			return
		}
	}
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
