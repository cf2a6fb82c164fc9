package classifier

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// SignatureProber identifies a file by its content and returns a
// file(1)-style description such as "ASCII text" or "PNG image data".
// An empty description means the prober could not tell.
type SignatureProber interface {
	Probe(ctx context.Context, path string) (string, error)
}

// FileCommandProber shells out to the file(1) utility.
type FileCommandProber struct {
	Binary string
}

// Probe runs `file -b` against path.
func (p FileCommandProber) Probe(ctx context.Context, path string) (string, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "file"
	}

	cmd := exec.CommandContext(ctx, binary, "-b", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("file probe: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// LibraryProber identifies content in-process with magic-number matching,
// falling back to a plain text sniff.
type LibraryProber struct{}

// Probe reads path and describes its content.
func (LibraryProber) Probe(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("library probe: %w", err)
	}
	return DescribeBytes(data), nil
}

var kindDescriptions = map[string]string{
	"jpg":  "JPEG image data",
	"png":  "PNG image data",
	"rar":  "RAR archive data",
	"zip":  "Zip archive data",
	"7z":   "7-zip archive data",
	"gif":  "GIF image data",
	"pdf":  "PDF document",
	"gz":   "gzip compressed data",
	"mkv":  "Matroska data",
	"avi":  "RIFF (little-endian) data, AVI",
	"mp4":  "ISO Media",
	"mp3":  "Audio file with ID3",
	"flac": "FLAC audio bitstream data",
	"exe":  "PE32 executable",
}

// DescribeBytes produces a file(1)-style description of data.
func DescribeBytes(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}

	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		if desc, ok := kindDescriptions[kind.Extension]; ok {
			return desc
		}
		return kind.MIME.Value + " data"
	}

	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "UTF-16 Unicode text"
	case hasControlBytes(data):
		return "data"
	case isASCII(data):
		return "ASCII text"
	case utf8.Valid(data):
		return "UTF-8 Unicode text"
	case isLatin1(data):
		return "ISO-8859 text"
	}
	return "data"
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// isLatin1 accepts high bytes only in the printable ISO-8859 range.
func isLatin1(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 && b < 0xA0 {
			return false
		}
	}
	return true
}
