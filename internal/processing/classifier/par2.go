package classifier

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
)

const par2HeaderSize = 64

var (
	par2Magic      = []byte("PAR2\x00PKT")
	par2TypePrefix = []byte("PAR 2.0\x00")

	errNoPar2Packet = errors.New("par2: no valid packet")
)

// Par2Packet is the header of one PAR2 recovery-record packet.
type Par2Packet struct {
	Offset int
	Length uint64
	Type   string
}

// ParsePar2 reads the PAR2 packets in data. It fails when data holds no
// packet with a valid header and checksum.
func ParsePar2(data []byte) ([]Par2Packet, error) {
	var packets []Par2Packet

	offset := bytes.Index(data, par2Magic)
	for offset >= 0 && offset+par2HeaderSize <= len(data) {
		header := data[offset:]
		if !bytes.HasPrefix(header, par2Magic) {
			break
		}

		length := binary.LittleEndian.Uint64(header[8:16])
		if length < par2HeaderSize || length%4 != 0 || length > uint64(len(header)) {
			break
		}

		packet := header[:length]
		sum := md5.Sum(packet[32:])
		if !bytes.Equal(sum[:], packet[16:32]) {
			break
		}

		typ := packet[48:64]
		if !bytes.HasPrefix(typ, par2TypePrefix) {
			break
		}

		packets = append(packets, Par2Packet{
			Offset: offset,
			Length: length,
			Type:   string(bytes.TrimRight(typ[len(par2TypePrefix):], "\x00")),
		})
		offset += int(length)
	}

	if len(packets) == 0 {
		return nil, errNoPar2Packet
	}
	return packets, nil
}
