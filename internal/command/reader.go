package command

import (
	"bufio"
	"io"
)

// Reader feeds complete input lines to the control loop without ever
// blocking it. A goroutine owns the blocking reads and buffers partial
// lines; the loop drains whatever is ready each iteration.
type Reader struct {
	lines chan string
}

// NewReader starts reading lines from r. The reader lives for the lifetime
// of the process; when r reaches EOF the feed simply stops.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{lines: make(chan string, 16)}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			rd.lines <- sc.Text()
		}
	}()
	return rd
}

// Drain returns all complete lines received since the last call, never
// blocking.
func (r *Reader) Drain() []string {
	var out []string
	for {
		select {
		case l := <-r.lines:
			out = append(out, l)
		default:
			return out
		}
	}
}
