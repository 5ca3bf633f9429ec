package llm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single "data:" line. bufio's 64 KiB default is too
// small for long reasoning chunks.
const maxSSELineSize = 1 << 20

// sseScanner yields the payload of each "data:" line of an OpenAI-style
// event stream. Providers put one JSON document per data line, so lines are
// not joined.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// Next returns the next data payload. It returns io.EOF at the end of the
// body or at the [DONE] sentinel.
func (s *sseScanner) Next() (string, error) {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			// event:, id:, retry:
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return "", io.EOF
		}
		if data == "" {
			continue
		}
		return data, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read event stream: %w", err)
	}
	return "", io.EOF
}
