package stream

import (
	"encoding/json"
	"strings"
)

const (
	// DataPrefix is stripped once from the start of a line.
	DataPrefix = "data: "

	// Sentinel marks the end of content lines. It carries no content and does
	// not end the stream; the transport's EOF does.
	Sentinel = "[DONE]"
)

// Kind tags a decoded line.
type Kind int

const (
	KindBlank Kind = iota
	KindSentinel
	KindEvent
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindSentinel:
		return "sentinel"
	case KindEvent:
		return "event"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Line is a single classified line of the response stream. Exactly one of
// Event and Err is set, for KindEvent and KindMalformed respectively.
type Line struct {
	Kind Kind

	// Raw is the line as emitted by the Decoder.
	Raw string

	// Payload is Raw with the "data: " prefix removed.
	Payload string

	Event *Event
	Err   error
}

// ParseLine classifies raw into a blank line, the sentinel, a JSON event or a
// malformed line.
func ParseLine(raw string) Line {
	line := Line{Raw: raw}

	if strings.TrimSpace(raw) == "" {
		line.Kind = KindBlank
		return line
	}

	payload := strings.TrimPrefix(raw, DataPrefix)
	line.Payload = payload

	if strings.TrimSpace(payload) == Sentinel {
		line.Kind = KindSentinel
		return line
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		line.Kind = KindMalformed
		line.Err = err
		return line
	}

	line.Kind = KindEvent
	line.Event = &ev
	return line
}
