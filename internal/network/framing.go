package network

import "bytes"

// Frame terminates msg for the wire.
func Frame(msg []byte) []byte {
	out := make([]byte, 0, len(msg)+1)
	out = append(out, msg...)
	return append(out, Terminator)
}

// Framer reassembles newline-terminated frames from arbitrary read chunks.
// A frame longer than MaxFrameSize is dropped up to its terminator.
type Framer struct {
	buf        []byte
	discarding bool
	dropped    int
}

// Feed appends raw bytes read from the connection.
func (f *Framer) Feed(p []byte) {
	for len(p) > 0 {
		if f.discarding {
			i := bytes.IndexByte(p, Terminator)
			if i < 0 {
				return
			}
			f.discarding = false
			p = p[i+1:]
			continue
		}

		i := bytes.IndexByte(p, Terminator)
		if i < 0 {
			f.buf = append(f.buf, p...)
			if f.partial() > MaxFrameSize {
				f.buf = f.buf[:len(f.buf)-f.partial()]
				f.discarding = true
				f.dropped++
			}
			return
		}
		start := len(f.buf) - f.partial()
		f.buf = append(f.buf, p[:i+1]...)
		if len(f.buf)-start-1 > MaxFrameSize {
			f.buf = f.buf[:start]
			f.dropped++
		}
		p = p[i+1:]
	}
}

// partial returns the length of the trailing unterminated bytes.
func (f *Framer) partial() int {
	i := bytes.LastIndexByte(f.buf, Terminator)
	return len(f.buf) - i - 1
}

// Next pops the oldest complete frame without its terminator.
func (f *Framer) Next() ([]byte, bool) {
	i := bytes.IndexByte(f.buf, Terminator)
	if i < 0 {
		return nil, false
	}
	frame := bytes.TrimRight(f.buf[:i], "\r")
	out := make([]byte, len(frame))
	copy(out, frame)
	f.buf = f.buf[i+1:]
	return out, true
}

// HasFrame reports whether Next would return a frame.
func (f *Framer) HasFrame() bool {
	return bytes.IndexByte(f.buf, Terminator) >= 0
}

// Dropped returns how many oversized frames were discarded.
func (f *Framer) Dropped() int {
	return f.dropped
}
