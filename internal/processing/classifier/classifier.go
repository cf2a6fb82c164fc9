package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Verdict is the outcome of classifying a candidate blob.
type Verdict int

const (
	NotNfo Verdict = iota
	Nfo
)

func (v Verdict) String() string {
	if v == Nfo {
		return "nfo"
	}
	return "not_nfo"
}

// ClassificationError reports a failure of the temporary-file probe step.
// The candidate was neither accepted nor rejected.
type ClassificationError struct {
	Op  string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.Op, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// Config wires the probing tools used by a Classifier.
type Config struct {
	// TmpDir holds the scoped probe files. Empty means os.TempDir().
	TmpDir   string
	Prober   SignatureProber
	Analyzer MediaAnalyzer
}

// Classifier decides whether a blob is a genuine NFO.
type Classifier struct {
	tmpDir   string
	prober   SignatureProber
	analyzer MediaAnalyzer
}

// New creates a classifier. A nil prober falls back to LibraryProber and a
// nil analyzer to FFprobeAnalyzer.
func New(cfg Config) *Classifier {
	c := &Classifier{
		tmpDir:   cfg.TmpDir,
		prober:   cfg.Prober,
		analyzer: cfg.Analyzer,
	}
	if c.prober == nil {
		c.prober = LibraryProber{}
	}
	if c.analyzer == nil {
		c.analyzer = FFprobeAnalyzer{}
	}
	return c
}

// Classify runs the heuristics in priority order; the first conclusive
// signal wins. guid only names the probe file.
func (c *Classifier) Classify(ctx context.Context, blob []byte, guid string) (Verdict, error) {
	if !sizeOK(blob) {
		return NotNfo, nil
	}
	if hasBinarySignature(blob) {
		return NotNfo, nil
	}

	path, err := c.writeProbeFile(blob, guid)
	if err != nil {
		return NotNfo, err
	}
	defer os.Remove(path)

	desc, err := c.prober.Probe(ctx, path)
	if err != nil {
		return NotNfo, &ClassificationError{Op: "probe", Err: err}
	}

	if desc != "" {
		if textDescription.MatchString(desc) {
			return Nfo, nil
		}
		if binaryDescription.MatchString(desc) || hasControlBytes(blob) {
			return NotNfo, nil
		}
	}

	return c.deepCheck(ctx, path, blob)
}

// deepCheck gives media, recovery-record and checksum parsers a chance to
// claim the blob. Text is the default explanation when nothing does.
func (c *Classifier) deepCheck(ctx context.Context, path string, blob []byte) (Verdict, error) {
	err := c.analyzer.Analyze(ctx, path)
	if err == nil {
		return NotNfo, nil
	}
	if errors.Is(err, ErrAnalyzerUnavailable) {
		return NotNfo, &ClassificationError{Op: "analyze", Err: err}
	}
	if _, err := ParsePar2(blob); err == nil {
		return NotNfo, nil
	}
	if _, err := ParseSFV(blob); err == nil {
		return NotNfo, nil
	}
	return Nfo, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (c *Classifier) writeProbeFile(blob []byte, guid string) (string, error) {
	dir := c.tmpDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &ClassificationError{Op: "tmpdir", Err: err}
	}

	prefix := unsafeName.ReplaceAllString(guid, "")
	if prefix == "" {
		prefix = "nfo"
	}

	f, err := os.CreateTemp(dir, prefix+"-*.tmp")
	if err != nil {
		return "", &ClassificationError{Op: "create", Err: err}
	}
	path := f.Name()

	if _, err := f.Write(blob); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &ClassificationError{Op: "write", Err: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", &ClassificationError{Op: "close", Err: err}
	}
	return path, nil
}
