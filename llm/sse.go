package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// ServerSentEventsReader decodes a text/event-stream body into typed
// events. Comment lines, blank keep-alives and non-JSON metadata are
// skipped. The reader distinguishes a stream that ended with the
// [DONE] terminator from one that was cut short.
type ServerSentEventsReader[T any] struct {
	body       io.ReadCloser
	reader     *bufio.Reader
	err        error
	terminated bool
}

func NewServerSentEventsReader[T any](stream io.ReadCloser) *ServerSentEventsReader[T] {
	return &ServerSentEventsReader[T]{
		body:   stream,
		reader: bufio.NewReader(stream),
	}
}

// Err returns the transport or decode error that stopped the stream,
// if any. A clean EOF is not an error.
func (s *ServerSentEventsReader[T]) Err() error {
	return s.err
}

// Terminated reports whether the [DONE] terminator was received.
func (s *ServerSentEventsReader[T]) Terminated() bool {
	return s.terminated
}

// Close closes the underlying stream.
func (s *ServerSentEventsReader[T]) Close() error {
	return s.body.Close()
}

// Next returns the next decoded event. It returns false when the
// stream terminates, is cut short, or fails; check Terminated and Err
// to tell those apart.
func (s *ServerSentEventsReader[T]) Next() (T, bool) {
	var zero T
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				s.err = err
			}
			return zero, false
		}

		// Skip empty keep-alive lines and ":" comment lines
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		// Remove "data: " prefix if present
		line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data: ")))

		// Check for stream end
		if bytes.Equal(line, []byte("[DONE]")) {
			s.terminated = true
			return zero, false
		}

		// Skip non-JSON lines (like "event: " lines or other SSE metadata)
		if !bytes.HasPrefix(line, []byte("{")) {
			continue
		}

		// Unmarshal then return the event
		var event T
		if err := json.Unmarshal(line, &event); err != nil {
			s.err = err
			return zero, false
		}
		return event, true
	}
}
