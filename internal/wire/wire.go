// Package wire implements the length-prefixed binary framing used for every
// orchestrator request/response body: a 4-byte big-endian length followed by
// a JSON-encoded payload. There is no existing ecosystem library for this
// exact bespoke framing (see DESIGN.md), so it is hand-rolled here.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nexusprover/client/internal/wireerr"
)

// MaxFrameSize bounds a single decoded frame to guard against a corrupt or
// hostile length prefix causing an unbounded allocation.
const MaxFrameSize = 64 << 20 // 64 MiB

// Encode marshals v to JSON and wraps it in a length-prefixed frame.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, &wireerr.DecodeError{Err: fmt.Errorf("encode: %w", err)}
	}
	return frame(payload), nil
}

// EncodeBytes wraps an already-serialized payload in a length-prefixed frame.
func EncodeBytes(payload []byte) []byte { return frame(payload) }

func frame(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// DecodeFrame reads one length-prefixed frame's payload from r.
func DecodeFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, &wireerr.DecodeError{Err: fmt.Errorf("read length prefix: %w", err)}
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, &wireerr.DecodeError{Err: fmt.Errorf("frame size %d exceeds max %d", n, MaxFrameSize)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, &wireerr.DecodeError{Err: fmt.Errorf("read payload: %w", err)}
	}
	return payload, nil
}

// Decode reads one length-prefixed frame from r and JSON-unmarshals it into v.
func Decode(r io.Reader, v any) error {
	payload, err := DecodeFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &wireerr.DecodeError{Err: fmt.Errorf("unmarshal: %w", err)}
	}
	return nil
}

// DecodeBytes parses an in-memory length-prefixed buffer, returning the
// payload and the number of bytes consumed.
func DecodeBytes(buf []byte) (payload []byte, consumed int, err error) {
	if len(buf) < 4 {
		return nil, 0, &wireerr.DecodeError{Err: fmt.Errorf("buffer shorter than length prefix")}
	}
	n := binary.BigEndian.Uint32(buf[0:4])
	if n > MaxFrameSize {
		return nil, 0, &wireerr.DecodeError{Err: fmt.Errorf("frame size %d exceeds max %d", n, MaxFrameSize)}
	}
	if uint32(len(buf)-4) < n {
		return nil, 0, &wireerr.DecodeError{Err: fmt.Errorf("buffer shorter than declared frame size")}
	}
	return buf[4 : 4+n], int(4 + n), nil
}
