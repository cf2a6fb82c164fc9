package classifier

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var sfvLine = regexp.MustCompile(`^(.+?)\s+([0-9A-Fa-f]{8})$`)

var errNoSfvEntries = errors.New("sfv: no file entries")

// SfvEntry is one file/CRC32 pair of a checksum listing.
type SfvEntry struct {
	Name  string
	CRC32 string
}

// ParseSFV reads a simple file verification listing. Every non-comment line
// must be a "<name> <crc32>" pair and at least one must be present.
func ParseSFV(data []byte) ([]SfvEntry, error) {
	var entries []SfvEntry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}

		m := sfvLine.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("sfv: line %d is not an entry", line)
		}
		entries = append(entries, SfvEntry{Name: m[1], CRC32: strings.ToLower(m[2])})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sfv: %w", err)
	}

	if len(entries) == 0 {
		return nil, errNoSfvEntries
	}
	return entries, nil
}
