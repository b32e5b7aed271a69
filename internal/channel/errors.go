package channel

import (
	"fmt"
	"unicode/utf8"
)

// maxFramePreview bounds how much of a bad frame is kept in a DecodeError.
const maxFramePreview = 256

// DecodeError is a malformed inbound frame. The channel stays open.
type DecodeError struct {
	Frame string
	Err   error
}

func newDecodeError(frame []byte, err error) *DecodeError {
	if len(frame) <= maxFramePreview {
		return &DecodeError{Frame: string(frame), Err: err}
	}
	n := maxFramePreview
	for n > 0 && !utf8.RuneStart(frame[n]) {
		n--
	}
	return &DecodeError{Frame: string(frame[:n]) + "...", Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed channel frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TransportError is a socket-level failure: a failed handshake or a broken
// connection.
type TransportError struct {
	Op         string // "dial" or "read"
	SessionID  string
	StatusCode int // handshake HTTP status, when known
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("channel %s for session %s failed (HTTP %d): %v", e.Op, e.SessionID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("channel %s for session %s failed: %v", e.Op, e.SessionID, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
