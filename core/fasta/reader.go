// core/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one FASTA entry.
type Record struct {
	ID  string
	Seq []byte
}

// Stream reads path record-by-record and sends each whole record on the
// returned channel. The channel is closed when the file is exhausted or an
// error occurs; the returned *error holds any streaming error once the
// channel is closed.
func Stream(path string) (<-chan Record, *error, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Record, 4)
	var streamErr error

	go func() {
		defer rc.Close()
		defer close(out)

		r := bufio.NewReader(rc)
		var id string
		var buf []byte

		flush := func() {
			if id == "" {
				return
			}
			out <- Record{ID: id, Seq: bytes.Clone(buf)}
		}

		for {
			line, err := r.ReadBytes('\n')
			eof := err == io.EOF
			if err != nil && !eof {
				streamErr = fmt.Errorf("fasta: read %s: %w", path, err)
				return
			}
			if len(line) > 0 && line[len(line)-1] == '\n' {
				line = line[:len(line)-1]
			}
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if eof && len(line) == 0 {
				break
			}
			if len(line) > 0 && line[0] == '>' {
				flush()
				fields := strings.Fields(string(line[1:]))
				if len(fields) > 0 {
					id = fields[0]
				} else {
					id = ""
				}
				buf = buf[:0]
				if eof {
					break
				}
				continue
			}
			buf = append(buf, bytes.ToUpper(line)...)
			if eof {
				break
			}
		}
		flush()
	}()
	return out, &streamErr, nil
}

/* ---------------- small helpers ---------------- */

// gzipMagic is the two-byte gzip member header; detecting compression by
// magic bytes rather than filename suffix means a ".fa" that happens to be
// gzip-compressed (or a ".gz" that isn't) is still handled correctly.
var gzipMagic = [2]byte{0x1f, 0x8b}

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return detectAndWrap(io.NopCloser(os.Stdin))
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := detectAndWrap(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	return rc, nil
}

func detectAndWrap(r io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("fasta: peek header: %w", err)
	}
	if len(head) == 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("fasta: gzip header: %w", err)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: r}, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: br, Closer: r}, nil
}
