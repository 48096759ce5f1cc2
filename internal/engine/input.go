package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single input line. Analysed sentences can be long.
const maxLineBytes = 16 << 20

// Feed sends every non-blank line of r to out, numbering lines from 1 as they
// appear in r. It returns when r is exhausted or ctx is done; it does not
// close out.
func Feed(ctx context.Context, r io.Reader, source string, out chan<- Line) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	no := 0
	for sc.Scan() {
		no++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		select {
		case out <- Line{Source: source, No: no, Text: text}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("engine: read %s: %w", source, err)
	}
	return nil
}
