package tquic

import (
	"crypto/tls"
	"errors"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// ALPN is the application protocol negotiated on every connection.
const ALPN = "topoview/1"

// Config is the configuration for [New].
type Config struct {
	// The socket to listen and dial on. Required.
	// The caller retains ownership and must close it after Teardown.
	UDPConn *net.UDPConn

	// The address announced to peers in the hello frame.
	// Defaults to UDPConn's local address.
	AdvertiseAddr string

	// UDP addresses to dial and keep connected.
	Peers []string

	// How long to wait before dialing a disconnected peer again.
	// Defaults to DefaultRedialInterval.
	RedialInterval time.Duration

	// Defaults to DefaultQUICConfig.
	QUIC *quic.Config

	// Defaults to a config with a freshly generated certificate.
	// ALPN is set and peer verification is disabled regardless.
	TLS *tls.Config

	// Number of message keys remembered for duplicate suppression.
	// Defaults to DefaultSeenCacheSize.
	SeenCacheSize int

	// Number of frames buffered per peer before sends are dropped.
	// Defaults to DefaultSendQueueSize.
	SendQueueSize int
}

const (
	DefaultRedialInterval = 2 * time.Second
	DefaultSeenCacheSize  = 4096
	DefaultSendQueueSize  = 64
)

func (c Config) validate() {
	var panicErrs error

	if c.UDPConn == nil {
		panicErrs = errors.Join(panicErrs, errors.New("Config.UDPConn must not be nil"))
	}
	if c.RedialInterval < 0 {
		panicErrs = errors.Join(panicErrs, errors.New("Config.RedialInterval must not be negative"))
	}
	if c.SeenCacheSize < 0 {
		panicErrs = errors.Join(panicErrs, errors.New("Config.SeenCacheSize must not be negative"))
	}
	if c.SendQueueSize < 0 {
		panicErrs = errors.Join(panicErrs, errors.New("Config.SendQueueSize must not be negative"))
	}

	if panicErrs != nil {
		panic(panicErrs)
	}
}

// DefaultQUICConfig is the default QUIC configuration for a [Config].
func DefaultQUICConfig() *quic.Config {
	return &quic.Config{
		// Defaults to 5 otherwise, which is far higher latency than a LAN mesh needs.
		HandshakeIdleTimeout: 2 * time.Second,

		// Connection-info messages arrive at least every few seconds,
		// but an idle pair of nodes still needs to notice a dead peer.
		MaxIdleTimeout:  15 * time.Second,
		KeepAlivePeriod: 5 * time.Second,

		// Frames are small JSON documents.
		InitialStreamReceiveWindow:     32 * 1024,
		MaxStreamReceiveWindow:         256 * 1024,
		InitialConnectionReceiveWindow: 4 * 32 * 1024,
		MaxConnectionReceiveWindow:     4 * 1024 * 1024,

		// Every frame is its own unidirectional stream.
		MaxIncomingStreams:    -1,
		MaxIncomingUniStreams: 256,
	}
}
