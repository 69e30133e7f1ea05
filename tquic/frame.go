package tquic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gordian-engine/topoview/ttransport"
	"github.com/quic-go/quic-go"
)

type frameKind string

const (
	helloFrame   frameKind = "hello"
	messageFrame frameKind = "message"
)

// maxFrameSize bounds how much of a stream is decoded.
const maxFrameSize = 1 << 20

// frameTimeout bounds how long a single frame may take to write or read.
const frameTimeout = 5 * time.Second

type frame struct {
	Kind frameKind `json:"kind"`

	// Set for hello frames.
	Hello string `json:"hello,omitempty"`

	// Set for message frames.
	Message *wireMessage `json:"message,omitempty"`
}

type wireMessage struct {
	Origin string          `json:"origin"`
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	AppID  string          `json:"appId"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func toWire(m ttransport.Message) *wireMessage {
	return &wireMessage{
		Origin: m.Address,
		ID:     m.ID,
		Type:   m.Type,
		AppID:  m.AppID,
		Data:   m.Data,
	}
}

func (w *wireMessage) message() ttransport.Message {
	return ttransport.Message{
		Outbound: ttransport.Outbound{
			Type:  w.Type,
			AppID: w.AppID,
			Data:  w.Data,
		},
		ID:      w.ID,
		Address: w.Origin,
	}
}

// writeFrame sends f on a new unidirectional stream.
func writeFrame(ctx context.Context, qc *quic.Conn, f frame) error {
	s, err := qc.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	if err := s.SetWriteDeadline(time.Now().Add(frameTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := json.NewEncoder(s).Encode(f); err != nil {
		s.CancelWrite(writeFailedCode)
		return fmt.Errorf("failed to write %s frame: %w", f.Kind, err)
	}

	return s.Close()
}

// acceptFrameStream waits for the next unidirectional stream.
// An error means the connection is no longer usable.
func acceptFrameStream(ctx context.Context, qc *quic.Conn) (io.Reader, func(time.Time) error, error) {
	s, err := qc.AcceptUniStream(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, s.SetReadDeadline, nil
}

// decodeFrame reads one frame from r.
func decodeFrame(r io.Reader, setDeadline func(time.Time) error) (frame, error) {
	if err := setDeadline(time.Now().Add(frameTimeout)); err != nil {
		return frame{}, fmt.Errorf("failed to set read deadline: %w", err)
	}

	var f frame
	if err := json.NewDecoder(io.LimitReader(r, maxFrameSize)).Decode(&f); err != nil {
		return frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return f, nil
}

// readFrame accepts the next stream and decodes its frame.
func readFrame(ctx context.Context, qc *quic.Conn) (frame, error) {
	r, setDeadline, err := acceptFrameStream(ctx, qc)
	if err != nil {
		return frame{}, fmt.Errorf("failed to accept stream: %w", err)
	}
	return decodeFrame(r, setDeadline)
}
