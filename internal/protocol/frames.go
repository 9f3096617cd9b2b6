package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize caps a single message body at 10 MiB. A declared length above
// this is rejected before any body bytes are read or allocated.
const MaxFrameSize = 10 * 1024 * 1024

// WriteFrame writes one length-prefixed message: a 4-byte unsigned big-endian
// length followed by exactly that many bytes of UTF-8 JSON.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return &ProtoError{Code: CodeOversized, Message: fmt.Sprintf("frame of %d bytes exceeds %d byte limit", len(payload), MaxFrameSize)}
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := w.Write(prefix[:]); err != nil {
		return &ProtoError{Code: CodeConnectionClosed, Message: fmt.Sprintf("write length prefix: %v", err), Err: err}
	}
	if _, err := w.Write(payload); err != nil {
		return &ProtoError{Code: CodeConnectionClosed, Message: fmt.Sprintf("write frame body: %v", err), Err: err}
	}
	return nil
}

// ReadFrame reads one length-prefixed message. A short read of the prefix is
// reported as a closed connection; an EOF before the declared byte count is
// reached is reported as a truncated frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, &ProtoError{Code: CodeConnectionClosed, Message: fmt.Sprintf("read length prefix: %v", err), Err: err}
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, &ProtoError{Code: CodeOversized, Message: fmt.Sprintf("declared frame length %d exceeds %d byte limit", length, MaxFrameSize)}
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, &ProtoError{Code: CodeTruncated, Message: fmt.Sprintf("read %d byte frame body: %v", length, err), Err: err}
	}
	return body, nil
}
