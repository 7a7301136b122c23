package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned by Open when the channel cannot be established.
	ErrConnection = errors.New("engine: connection failed")
	// ErrSend is returned when a request could not be written.
	ErrSend = errors.New("engine: send failed")
	// ErrReceive is returned when the channel fails before a full reply arrives.
	ErrReceive = errors.New("engine: receive failed")
	// ErrTimeout is returned when no reply arrives within the reply timeout.
	ErrTimeout = errors.New("engine: timed out waiting for reply")
	// ErrClosed is returned for any use of a session after Close.
	ErrClosed = errors.New("engine: session closed")
	// ErrBusy is returned by Send while another request is still outstanding.
	ErrBusy = errors.New("engine: request already outstanding")
	// ErrReplyMismatch is returned when a reply does not belong to the outstanding request.
	ErrReplyMismatch = errors.New("engine: reply does not match outstanding request")
	// ErrOpen is returned when a document cannot be opened.
	ErrOpen = errors.New("engine: open document failed")
	// ErrMaterialize is returned when a layout cannot be produced for an object.
	ErrMaterialize = errors.New("engine: materialize failed")
)

// RPCError is the error payload the engine returns instead of a result.
type RPCError struct {
	Code      int    `json:"code"`
	Parameter string `json:"parameter,omitempty"`
	Message   string `json:"message"`
}

func (e *RPCError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.Parameter != "" {
		msg += " (" + e.Parameter + ")"
	}
	if e.Code != 0 {
		return fmt.Sprintf("engine error %d: %s", e.Code, msg)
	}
	return "engine error: " + msg
}
