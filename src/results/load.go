package results

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxLineBytes caps a single JSONL line.
const MaxLineBytes = 64 * 1024 * 1024

// IngestError reports a missing, unreadable or malformed result file.
type IngestError struct {
	Path string
	Line int // 1-based JSONL line, 0 when not applicable
	Err  error
}

func (e *IngestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("ingest %s line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// MissingFieldError names a required record field absent from the input.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// wireRecord tells absent fields apart from zero values.
type wireRecord struct {
	Iteration                 *int64   `json:"iteration"`
	Action                    *string  `json:"action"`
	Operation                 string   `json:"operation"`
	Path                      string   `json:"path"`
	Duration                  *float64 `json:"duration"`
	Size                      *float64 `json:"size"`
	FileExtentCount           *int64   `json:"file_extent_count"`
	UnderscoreFileExtentCount *int64   `json:"_file_extent_count"`
	TotalExtentsCount         *int64   `json:"total_extents_count"`
}

func (w *wireRecord) record() (Record, error) {
	switch {
	case w.Iteration == nil:
		return Record{}, &MissingFieldError{Field: "iteration"}
	case w.Action == nil:
		return Record{}, &MissingFieldError{Field: "action"}
	case w.Duration == nil:
		return Record{}, &MissingFieldError{Field: "duration"}
	case w.Size == nil:
		return Record{}, &MissingFieldError{Field: "size"}
	case w.TotalExtentsCount == nil:
		return Record{}, &MissingFieldError{Field: "total_extents_count"}
	}
	return Record{
		Iteration:                 *w.Iteration,
		Action:                    *w.Action,
		Operation:                 w.Operation,
		Path:                      w.Path,
		Duration:                  *w.Duration,
		Size:                      *w.Size,
		FileExtentCount:           w.FileExtentCount,
		UnderscoreFileExtentCount: w.UnderscoreFileExtentCount,
		TotalExtentsCount:         *w.TotalExtentsCount,
	}, nil
}

// Load reads every record of a result file. Both a JSON array and line-delimited
// JSON are accepted; .gz and .zst files are decompressed on the fly.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	defer f.Close()
	r, closeFn, err := decompressor(path, f)
	if err != nil {
		return nil, &IngestError{Path: path, Err: err}
	}
	defer closeFn()
	recs, err := Decode(r)
	if err != nil {
		var ie *IngestError
		if errors.As(err, &ie) {
			ie.Path = path
			return nil, ie
		}
		return nil, &IngestError{Path: path, Err: err}
	}
	return recs, nil
}

// LoadSource loads a file into a Source. An empty label falls back to the file's base name.
func LoadSource(path, label string) (*Source, error) {
	recs, err := Load(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		label = filepath.Base(path)
	}
	return &Source{Path: path, Label: label, Records: recs}, nil
}

func decompressor(path string, f io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return zr, zr.Close, nil
	}
	return f, func() {}, nil
}

// Decode parses records from r. The first non-space byte selects the format:
// '[' for a JSON array, anything else for JSONL. Every record must carry
// iteration, action, duration, size and total_extents_count.
func Decode(r io.Reader) ([]Record, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, err
	}
	if first == '[' {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		var wire []wireRecord
		// Unmarshal also rejects bytes after the closing bracket.
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, &IngestError{Err: fmt.Errorf("decode array: %w", err)}
		}
		recs := make([]Record, 0, len(wire))
		for i := range wire {
			rec, err := wire[i].record()
			if err != nil {
				return nil, &IngestError{Err: fmt.Errorf("record %d: %w", i+1, err)}
			}
			recs = append(recs, rec)
		}
		return recs, nil
	}
	return decodeLines(br)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func decodeLines(br *bufio.Reader) ([]Record, error) {
	recs := []Record{}
	lineNo := 0
	for {
		var line []byte
		var rerr error
		// Accumulate one logical line; ReadSlice may return partial chunks.
		for {
			part, err := br.ReadSlice('\n')
			if len(line)+len(part) > MaxLineBytes {
				return nil, &IngestError{Line: lineNo + 1, Err: fmt.Errorf("line exceeds %d bytes", MaxLineBytes)}
			}
			line = append(line, part...)
			if errors.Is(err, bufio.ErrBufferFull) {
				continue
			}
			rerr = err
			break
		}
		if len(line) > 0 {
			lineNo++
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				var w wireRecord
				if err := json.Unmarshal(trimmed, &w); err != nil {
					return nil, &IngestError{Line: lineNo, Err: err}
				}
				rec, err := w.record()
				if err != nil {
					return nil, &IngestError{Line: lineNo, Err: err}
				}
				recs = append(recs, rec)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return recs, nil
			}
			return nil, &IngestError{Line: lineNo, Err: rerr}
		}
	}
}
