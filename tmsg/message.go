package tmsg

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gordian-engine/topoview/tgraph"
	"github.com/gordian-engine/topoview/ttransport"
)

// TypeConnectionInfo is the message type carrying a [ConnectionInfo].
const TypeConnectionInfo = "connection-info"

// DefaultAppID namespaces topoview messages on a shared transport.
const DefaultAppID = "topology-net"

// ConnectionInfo is a node's report of its direct connections.
type ConnectionInfo struct {
	Address           string          `json:"address"`
	ActiveConnections map[string]bool `json:"activeConnections"`
}

// ConnSet returns the reported connections as a [tgraph.ConnSet].
// Entries explicitly set to false are not connections,
// so they do not count toward the count-based change detection either.
func (ci ConnectionInfo) ConnSet() tgraph.ConnSet {
	cs := make(tgraph.ConnSet, len(ci.ActiveConnections))
	for a, present := range ci.ActiveConnections {
		if present {
			cs[a] = struct{}{}
		}
	}
	return cs
}

// NewConnectionInfo builds a ConnectionInfo for addr
// from the transport's active connection list.
func NewConnectionInfo(addr string, conns []ttransport.Connection) ConnectionInfo {
	ac := make(map[string]bool, len(conns))
	for _, c := range conns {
		ac[c.Address] = true
	}
	return ConnectionInfo{
		Address:           addr,
		ActiveConnections: ac,
	}
}

// Outbound wraps ci in an envelope for appID.
func (ci ConnectionInfo) Outbound(appID string) (ttransport.Outbound, error) {
	data, err := json.Marshal(ci)
	if err != nil {
		return ttransport.Outbound{}, fmt.Errorf("failed to marshal connection info: %w", err)
	}
	return ttransport.Outbound{
		Type:  TypeConnectionInfo,
		AppID: appID,
		Data:  data,
	}, nil
}

// ErrNotConnectionInfo is returned by [DecodeConnectionInfo]
// for messages of any other type.
var ErrNotConnectionInfo = errors.New("message is not connection-info")

// DecodeConnectionInfo extracts the ConnectionInfo from m.
// It does not check the app ID; callers filter on that first.
func DecodeConnectionInfo(m ttransport.Outbound) (ConnectionInfo, error) {
	if m.Type != TypeConnectionInfo {
		return ConnectionInfo{}, ErrNotConnectionInfo
	}

	var ci ConnectionInfo
	if err := json.Unmarshal(m.Data, &ci); err != nil {
		return ConnectionInfo{}, fmt.Errorf("failed to unmarshal connection info: %w", err)
	}
	return ci, nil
}
