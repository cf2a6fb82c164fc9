package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	nfo := bytes.Repeat([]byte("  ▄▄▄  Release Info  ▄▄▄\r\n"), 200)

	payload, err := Encode(nfo)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := binary.LittleEndian.Uint32(payload[:4]); int(got) != len(nfo) {
		t.Errorf("length header = %d, want %d", got, len(nfo))
	}
	if len(payload) >= len(nfo) {
		t.Errorf("payload not compressed: %d >= %d", len(payload), len(nfo))
	}

	out, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(out, nfo) {
		t.Error("round trip mismatch")
	}
}

func TestEncode_Empty(t *testing.T) {
	payload, err := Encode(nil)
	if err != nil || len(payload) != 0 {
		t.Fatalf("Encode(nil) = %v, %v; want empty payload", payload, err)
	}
}

func TestDecode_Corrupt(t *testing.T) {
	payload, err := Encode([]byte("some nfo text that is long enough"))
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(payload[:4], 5)

	if _, err := Decode(payload); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
	if _, err := Decode([]byte{1, 2}); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt for short payload, got %v", err)
	}
}
