package backend

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

// sseScanner parses a server-sent event stream. It handles event and data
// fields, joins multi-line data with newlines, and skips comments and
// unknown fields.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	sc := bufio.NewScanner(r)
	// Individual deltas are small, but providers occasionally batch large
	// payloads into one event.
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	return &sseScanner{scanner: sc}
}

// Next returns the next non-empty event, or io.EOF at end of stream.
func (s *sseScanner) Next() (*sseEvent, error) {
	var name string
	var data []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// A blank line terminates the current event.
		if line == "" {
			if name != "" || len(data) > 0 {
				return &sseEvent{name: name, data: strings.Join(data, "\n")}, nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if value, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(value)
			continue
		}
		if value, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(value, " "))
			continue
		}
	}

	if err := s.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended mid-event: deliver what we have.
	if name != "" || len(data) > 0 {
		return &sseEvent{name: name, data: strings.Join(data, "\n")}, nil
	}
	return nil, io.EOF
}
