// Package sse implements an incremental parser for text/event-stream bodies.
// Bytes arrive in arbitrary chunks; the parser buffers a partial frame across
// chunk boundaries so its output never depends on how the transport split
// the stream.
package sse

import (
	"bytes"
	"strings"
)

// Frame is one decoded server-sent event: the event type plus its raw data
// payload. The payload is not trimmed.
type Frame struct {
	Event string
	Data  []byte
}

// Parser splits an append-only byte stream into frames on the blank-line
// delimiter. The zero value is ready to use.
type Parser struct {
	buf []byte
}

var delimiter = []byte("\n\n")

// Write appends a chunk of transport data and returns every complete frame
// now available, in stream order. Incomplete trailing bytes stay buffered
// for the next chunk. Frames missing an event type or data line are
// discarded.
func (p *Parser) Write(data []byte) []Frame {
	p.buf = append(p.buf, data...)

	var frames []Frame
	for {
		end := bytes.Index(p.buf, delimiter)
		if end == -1 {
			break
		}

		raw := p.buf[:end]
		p.buf = p.buf[end+len(delimiter):]

		if frame, ok := decode(raw); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

// Flush decodes whatever is still buffered as one final frame and resets the
// parser. Called when the transport completes, so a stream whose last frame
// lacks the trailing delimiter is not lost.
func (p *Parser) Flush() []Frame {
	raw := p.buf
	p.buf = nil

	if len(raw) == 0 {
		return nil
	}
	if frame, ok := decode(raw); ok {
		return []Frame{frame}
	}
	return nil
}

// decode extracts the event type and data payload from one raw frame. Both
// parts must be present for the frame to be usable.
func decode(raw []byte) (Frame, bool) {
	var frame Frame

	for _, line := range bytes.Split(raw, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			frame.Event = strings.TrimSpace(string(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[len("data:"):]
			// A single space after the colon is part of the SSE framing,
			// not the payload.
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			frame.Data = append([]byte(nil), data...)
		}
	}

	if frame.Event == "" || len(frame.Data) == 0 {
		return Frame{}, false
	}
	return frame, true
}
