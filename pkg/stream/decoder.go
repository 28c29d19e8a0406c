// Package stream assembles the display text of a streamed agent response.
//
// The agent service writes newline-delimited lines, each either the "[DONE]"
// sentinel or an (optionally "data: " prefixed) JSON event. Transport chunks
// arrive with arbitrary boundaries, so bytes are buffered until a full line is
// available and only then decoded and classified.
//
//	┌──────────┐   ┌─────────┐   ┌───────────┐   ┌───────────────┐
//	│  chunks  │──▶│ Decoder │──▶│ ParseLine │──▶│ display text  │
//	└──────────┘   └─────────┘   └───────────┘   └───────────────┘
package stream

import (
	"bytes"
	"strings"
)

// Decoder splits a chunked byte stream into lines.
//
// Lines are split on the '\n' byte. That byte never occurs inside a
// multi-byte UTF-8 sequence, so a character cut across two chunks stays in
// the pending buffer until its remaining bytes arrive. Invalid UTF-8 is
// replaced with U+FFFD when a line is emitted.
type Decoder struct {
	pending []byte
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the pending bytes and returns every line completed
// by it, without the terminating newline or a trailing '\r'. The trailing
// partial line is retained for the next call.
func (d *Decoder) Feed(chunk []byte) []string {
	d.pending = append(d.pending, chunk...)

	var lines []string
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, emit(d.pending[:i]))
		d.pending = d.pending[i+1:]
	}

	// Reclaim the consumed prefix once nothing is pending.
	if len(d.pending) == 0 {
		d.pending = nil
	}

	return lines
}

// Flush returns the remaining pending bytes as a final line, if any. Call it
// once the transport reports end of stream.
func (d *Decoder) Flush() []string {
	if len(d.pending) == 0 {
		return nil
	}
	line := emit(d.pending)
	d.pending = nil
	return []string{line}
}

// Pending returns the number of buffered bytes not yet emitted as a line.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func emit(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
