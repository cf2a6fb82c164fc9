package classifier

import "regexp"

const (
	minBlobSize = 11
	maxBlobSize = 65535
)

var (
	// Known container and binary headers, plus SFV generator comments.
	binarySignature = regexp.MustCompile(
		`(?i)\A(\s*<\?xml|=newz\[NZB\]=|RIFF|\s*[RP]AR|.{0,10}(JFIF|matroska|ftyp|ID3))|;\s*Generated\s*by.*SF\w`,
	)

	textDescription   = regexp.MustCompile(`(ASCII|ISO-8859|UTF-(8|16|32).*?)\s*text`)
	binaryDescription = regexp.MustCompile(`^(JPE?G|Parity|PNG|RAR|XML|(7-)?[Zz]ip)`)
)

func sizeOK(blob []byte) bool {
	return len(blob) > minBlobSize && len(blob) < maxBlobSize
}

func hasBinarySignature(blob []byte) bool {
	return binarySignature.Match(blob)
}

// isControlByte reports bytes that never appear in NFO text. Tab, LF, CR,
// form feed and 0x10/0x11 are allowed.
func isControlByte(b byte) bool {
	switch {
	case b <= 0x08:
		return true
	case b == 0x0B:
		return true
	case b == 0x0E || b == 0x0F:
		return true
	case b >= 0x12 && b <= 0x1F:
		return true
	}
	return false
}

func hasControlBytes(blob []byte) bool {
	for _, b := range blob {
		if isControlByte(b) {
			return true
		}
	}
	return false
}
