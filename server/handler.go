package main

import (
	"errors"
	"io"
	"log"
	"net"
)

// handleConn reads input frames from c until the stream ends, then removes
// the player and releases the connection.
func (s *Server) handleConn(id int, c Conn) {
	defer func() {
		s.hub.Unregister(id)
		s.world.RemovePlayer(id)
		s.hub.TrackDisconnect(c.RemoteIP())
		c.Close()
		s.analytics.Track(Event{Type: EvtDisconnect, PlayerID: id})
		log.Printf("Player %d disconnected", id)
	}()

	var split lineSplitter
	for {
		chunk, err := c.ReadChunk()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("read from player %d: %v", id, err)
			}
			if n := split.Pending(); n > 0 {
				log.Printf("Player %d left %d bytes of an unfinished frame", id, n)
			}
			return
		}
		for _, frame := range split.Feed(chunk) {
			in, err := decodeClientFrame(frame)
			if err != nil {
				continue
			}
			s.world.SetInput(id, in)
		}
	}
}
