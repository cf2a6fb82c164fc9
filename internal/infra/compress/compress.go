// Package compress frames NFO payloads the way MySQL's COMPRESS() does:
// a 4-byte little-endian uncompressed length followed by a zlib stream.
// Payloads written by either side stay readable by the other.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const lengthMask = 0x3FFFFFFF

// ErrCorrupt is returned when a payload does not decode to its declared length.
var ErrCorrupt = errors.New("compressed payload corrupt")

// Encode compresses data. Empty input encodes to an empty payload.
func Encode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data))&lengthMask)
	buf.Write(header[:])

	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode.
func Decode(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return []byte{}, nil
	}
	if len(payload) < 5 {
		return nil, ErrCorrupt
	}

	size := int(binary.LittleEndian.Uint32(payload[:4]) & lengthMask)
	r, err := zlib.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return nil, fmt.Errorf("zlib open: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("%w: got %d bytes, header says %d", ErrCorrupt, len(out), size)
	}
	return out, nil
}
