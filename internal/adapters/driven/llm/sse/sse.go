// Package sse reads server-sent event streams as used by the OpenAI and
// Anthropic streaming APIs.
package sse

import (
	"bufio"
	"io"
	"iter"
	"strings"
)

// maxLine bounds a single data line.
const maxLine = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	// Name is the "event:" field, empty when the server sent none.
	Name string
	// Data is the "data:" fields joined by newlines.
	Data string
}

// Events yields each event in r. Comment lines and unknown fields are ignored.
// A trailing event without a terminating blank line is still delivered.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)

		var ev Event
		var data []string
		dispatch := func() bool {
			if len(data) == 0 && ev.Name == "" {
				return true
			}
			ev.Data = strings.Join(data, "\n")
			ok := yield(ev, nil)
			ev, data = Event{}, data[:0]
			return ok
		}

		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				if !dispatch() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.Name = value
			case "data":
				data = append(data, value)
			}
		}
		if err := sc.Err(); err != nil {
			yield(Event{}, err)
			return
		}
		dispatch()
	}
}
