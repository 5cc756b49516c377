package collaborator

import (
	"bufio"
	"bytes"
	"io"
)

const maxLineSize = 1 << 20

// LineSource is a pull-based reader of collaborator output. Next blocks
// until a full line is available and returns io.EOF once the stream ends.
type LineSource interface {
	Next() (string, error)
}

type scannerSource struct {
	scanner *bufio.Scanner
}

// NewLineSource splits r into lines on '\n', '\r' or "\r\n". Carriage
// returns count as breaks because progress reporters redraw their status
// line in place.
func NewLineSource(r io.Reader) LineSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanLines)
	return &scannerSource{scanner: scanner}
}

func (s *scannerSource) Next() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
		return advance, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// SplitLines is the in-memory counterpart of NewLineSource for output that
// was captured whole.
func SplitLines(output []byte) []string {
	src := NewLineSource(bytes.NewReader(output))
	var lines []string
	for {
		line, err := src.Next()
		if err != nil {
			return lines
		}
		lines = append(lines, line)
	}
}
