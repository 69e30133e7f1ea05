package tquic

import (
	"fmt"

	"github.com/quic-go/quic-go"
)

// Application error codes sent when closing a connection.
const (
	closeTeardownCode  quic.ApplicationErrorCode = 0
	closeDuplicateCode quic.ApplicationErrorCode = 1
	closeHandshakeCode quic.ApplicationErrorCode = 2
	closeSelfCode      quic.ApplicationErrorCode = 3
)

const writeFailedCode quic.StreamErrorCode = 1

// HandshakeError is logged when a new connection
// fails to exchange hello frames.
type HandshakeError struct {
	Remote string
	Err    error
}

func (e HandshakeError) Error() string {
	return fmt.Sprintf("hello exchange with %s failed: %v", e.Remote, e.Err)
}

func (e HandshakeError) Unwrap() error {
	return e.Err
}

// UnexpectedFrameError indicates a peer sent a frame
// of a kind not valid at that point in the connection.
type UnexpectedFrameError struct {
	Got, Want frameKind
}

func (e UnexpectedFrameError) Error() string {
	return fmt.Sprintf("expected %s frame, got %q", e.Want, e.Got)
}
