// Package protocol implements the wire format shared by server and client:
// a 4-byte little-endian length prefix followed by exactly that many bytes
// of JSON payload. See original_source/src/tcp_server.rs for the framing
// this package generalizes from raw byte slices to typed Request/Response
// values.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxFrame bounds a single frame's payload size. Frames exceeding it
// are rejected before the body is allocated, so a malicious or buggy peer
// cannot force an unbounded allocation by lying about its length.
const DefaultMaxFrame = 1 << 20 // 1 MiB

// ErrFrameTooLarge is returned by ReadFrame when a header announces a body
// larger than the configured maximum.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

const headerSize = 4

// ReadFrame reads one length-prefixed frame from r, enforcing maxFrame on
// the announced body length. A peer close while filling the header or the
// body, whether before any byte arrived or partway (io.ErrUnexpectedEOF),
// surfaces as io.EOF, matching a clean peer close; any other read error is
// returned as-is.
func ReadFrame(r io.Reader, maxFrame int) ([]byte, error) {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}

	length := binary.LittleEndian.Uint32(header[:])
	if int64(length) > int64(maxFrame) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, length, maxFrame)
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, err
		}
	}
	return body, nil
}

// WriteFrame writes payload as a single length-prefixed frame. The header
// and body are written as one buffer so concurrent writers to the same
// destination (see internal/transport) cannot interleave partial frames.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:headerSize], uint32(len(payload)))
	copy(buf[headerSize:], payload)
	_, err := w.Write(buf)
	return err
}
