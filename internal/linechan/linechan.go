package linechan

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
)

// Buffer splits a byte stream into lines. Partial lines are held until
// the newline arrives or the stream is flushed.
type Buffer struct {
	partial []byte
}

// Write appends p and returns every line it completed, without the
// trailing newline.
func (b *Buffer) Write(p []byte) []string {
	var lines []string

	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.partial = append(b.partial, p...)
			break
		}

		b.partial = append(b.partial, p[:i]...)
		lines = append(lines, string(b.partial))
		b.partial = b.partial[:0]
		p = p[i+1:]
	}

	return lines
}

// Flush returns the unterminated tail, if any.
func (b *Buffer) Flush() (string, bool) {
	if len(b.partial) == 0 {
		return "", false
	}
	line := string(b.partial)
	b.partial = nil
	return line, true
}

// Reader delivers the lines of one pipe on a channel. The channel is
// closed after the trailing data has been flushed.
type Reader struct {
	lines chan string

	mu  sync.Mutex
	err error
}

// Read starts reading r in chunks of size bytes.
func Read(r io.Reader, size int) *Reader {
	if size <= 0 {
		size = 4096
	}

	reader := &Reader{
		lines: make(chan string),
	}

	go reader.run(r, size)
	return reader
}

func (r *Reader) Lines() <-chan string {
	return r.lines
}

// Err returns the read error that ended the stream, nil for a clean
// close. Only meaningful once Lines is closed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reader) run(src io.Reader, size int) {
	defer close(r.lines)

	var buf Buffer
	chunk := make([]byte, size)

	for {
		n, err := src.Read(chunk)
		if n > 0 {
			for _, line := range buf.Write(chunk[:n]) {
				r.lines <- line
			}
		}

		if err != nil {
			if line, ok := buf.Flush(); ok {
				r.lines <- line
			}
			if !closed(err) {
				r.mu.Lock()
				r.err = err
				r.mu.Unlock()
			}
			return
		}
	}
}

func closed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}

// Writer writes newline terminated lines to one pipe.
type Writer struct {
	mu     sync.Mutex
	w      io.WriteCloser
	closed bool
}

func NewWriter(w io.WriteCloser) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}

	_, err := io.WriteString(w.w, line+"\n")
	return err
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.w.Close()
}
