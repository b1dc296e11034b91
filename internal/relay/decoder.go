// Package relay implements the streaming chat-completion relay: decoding the
// vendor's server-sent-event stream, accumulating tool-call fragments, and
// executing persistence once the stream ends.
package relay

import "strings"

// dataPrefix marks SSE payload lines; doneSentinel terminates the stream.
const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Event is one complete data line decoded from the upstream stream.
type Event struct {
	// Raw is the full line as received, without the trailing newline.
	// Forwarded downstream unmodified for pass-through semantics.
	Raw string
	// Payload is the text after the "data: " prefix.
	Payload string
}

// Decoder turns a sequence of byte chunks into complete SSE data lines.
// It keeps a residual buffer so lines split across network chunks are
// reassembled; the output never depends on where chunk boundaries fall.
type Decoder struct {
	rest strings.Builder
	done bool
}

// NewDecoder returns a decoder ready to receive chunks.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends one chunk and returns every complete data event it unlocked.
// Blank lines, comment lines starting with ":" and lines without the
// "data: " prefix are dropped. Once the [DONE] sentinel is seen the decoder
// is finished and all further input is ignored.
func (d *Decoder) Feed(chunk []byte) []Event {
	if d.done {
		return nil
	}
	d.rest.Write(chunk)

	buf := d.rest.String()
	var events []Event
	for {
		nl := strings.IndexByte(buf, '\n')
		if nl < 0 {
			break
		}
		line := strings.TrimSuffix(buf[:nl], "\r")
		buf = buf[nl+1:]

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneSentinel {
			d.done = true
			buf = ""
			break
		}
		events = append(events, Event{Raw: line, Payload: payload})
	}

	d.rest.Reset()
	d.rest.WriteString(buf)
	return events
}

// Done reports whether the [DONE] sentinel has been reached.
func (d *Decoder) Done() bool {
	return d.done
}
