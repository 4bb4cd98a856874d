package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the length of the frame prefix
const HeaderSize = 4

// MaxFrameSize is the largest payload a reader accepts by default
const MaxFrameSize = 100 * 1024 * 1024

var (
	// ErrEmptyFrame is returned for a zero length prefix
	ErrEmptyFrame = errors.New("empty frame")

	// ErrFrameTooLarge is returned when the prefix exceeds the reader's limit
	ErrFrameTooLarge = errors.New("frame too large")
)

// Flusher is implemented by writers that buffer frames
type Flusher interface {
	Flush() error
}

// AppendFrame appends the length-prefixed form of payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// WriteFrame writes a little-endian uint32 length followed by payload in a
// single write, then flushes w if it buffers.
func WriteFrame(w io.Writer, payload []byte) error {
	if _, err := w.Write(AppendFrame(make([]byte, 0, HeaderSize+len(payload)), payload)); err != nil {
		return err
	}
	if f, ok := w.(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// ReadFrame reads one frame. A max of zero means MaxFrameSize.
func ReadFrame(r io.Reader, max uint32) ([]byte, error) {
	if max == 0 {
		max = MaxFrameSize
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := binary.LittleEndian.Uint32(header[:])
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if n > max {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFrameTooLarge, n, max)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return payload, nil
}
