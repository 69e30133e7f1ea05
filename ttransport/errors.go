package ttransport

import "errors"

// ErrTornDown is returned by operations on a transport
// after its Teardown method has been called.
var ErrTornDown = errors.New("transport torn down")

// UnknownPeerError is returned when an operation names
// a peer the transport has never seen.
type UnknownPeerError struct {
	Address string
}

func (e UnknownPeerError) Error() string {
	return "unknown peer " + e.Address
}
