// Package tmsg defines the connection-info message
// that nodes broadcast to announce their direct connections.
//
// On the wire it is JSON:
//
//	{"type":"connection-info","appId":"topology-net","data":{"address":"a","activeConnections":{"b":true}}}
package tmsg
