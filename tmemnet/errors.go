package tmemnet

import "fmt"

// AlreadyJoinedError is returned from [*Network.Join]
// when a node with the same address is already present.
type AlreadyJoinedError struct {
	Address string
}

func (e AlreadyJoinedError) Error() string {
	return fmt.Sprintf("address %q already joined the network", e.Address)
}

// SelfConnectError is returned from [*Network.Connect]
// when both addresses are the same.
type SelfConnectError struct {
	Address string
}

func (e SelfConnectError) Error() string {
	return fmt.Sprintf("cannot connect %q to itself", e.Address)
}
