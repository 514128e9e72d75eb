package main

import "bytes"

const maxFrameSize = 64 * 1024

// lineSplitter reassembles newline-delimited frames from arbitrary chunks.
// A frame longer than maxFrameSize is discarded up to its terminating
// newline; the bytes after that newline are kept.
type lineSplitter struct {
	buf      []byte
	skipping bool
}

// Feed appends chunk and returns every complete frame it finished, without
// the delimiter. Returned slices are only valid until the next Feed.
func (s *lineSplitter) Feed(chunk []byte) [][]byte {
	var frames [][]byte
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			if !s.skipping {
				s.buf = append(s.buf, chunk...)
				if len(s.buf) > maxFrameSize {
					s.buf = s.buf[:0]
					s.skipping = true
				}
			}
			break
		}

		line := chunk[:i]
		chunk = chunk[i+1:]
		if s.skipping {
			s.skipping = false
			continue
		}
		if len(s.buf) > 0 {
			s.buf = append(s.buf, line...)
			line = s.buf
			s.buf = nil
		}
		if len(line) > maxFrameSize {
			continue
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		frames = append(frames, line)
	}
	return frames
}

// Pending returns the number of buffered bytes of an incomplete frame
func (s *lineSplitter) Pending() int {
	return len(s.buf)
}
