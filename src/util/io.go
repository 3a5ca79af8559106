package util

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Buffer accumulates textual output line-by-line in a strings.Builder.
// Unlike the teacher's Writer it is not backed by a channel: the generator
// that owns a Buffer is single-threaded (see codegen package), so there is
// no concurrent writer to serialise against.
type Buffer struct {
	sb strings.Builder
}

// ---------------------
// ----- Functions -----
// ---------------------

// Add writes a formatted line to the buffer, followed by a newline.
func (b *Buffer) Add(format string, args ...interface{}) {
	b.sb.WriteString(fmt.Sprintf(format, args...))
	b.sb.WriteByte('\n')
}

// AddString writes a plain line to the buffer, followed by a newline.
func (b *Buffer) AddString(s string) {
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

// Result returns the buffer's accumulated text.
func (b *Buffer) Result() string {
	return b.sb.String()
}

// Len returns the number of bytes currently held by the buffer.
func (b *Buffer) Len() int {
	return b.sb.Len()
}

// ReadSource reads source text from file or stdin.
// If the Options structure holds a string for source the file will be opened and read.
// Else the function waits for a short period for input on stdin. If no input on stdin is
// provided the function returns an error.
func ReadSource(opt Options) (string, error) {
	if len(opt.Src) > 0 {
		// Read from file.
		b, err := ioutil.ReadFile(opt.Src)
		return string(b), err
	}

	// Read stdin.
	c := make(chan string)
	cerr := make(chan error)

	// Concurrently wait for input on stdin.
	go func(c chan string, cerr chan error) {
		defer close(c)
		defer close(cerr)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString(0)
		if err == nil || (err == io.EOF && len(text) > 0) {
			c <- text
		} else {
			cerr <- err
		}
	}(c, cerr)

	// Select between input from stdin or timer expiry.
	select {
	case <-time.After(500 * time.Millisecond):
		return "", errors.New("expected input from stdin, got none")
	case s := <-c:
		return s, nil
	}
}

// WriteOutput writes s to file f, or to stdout if f is nil.
func WriteOutput(f *os.File, s string) error {
	var w *bufio.Writer
	if f != nil {
		w = bufio.NewWriter(f)
	} else {
		w = bufio.NewWriter(os.Stdout)
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.Flush()
}
