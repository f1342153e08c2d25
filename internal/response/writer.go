package response

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/headers"
)

type writerState string

const (
	stateStatusLine writerState = "status line"
	stateHeaders    writerState = "headers"
	stateBody       writerState = "body"
	stateDone       writerState = "done"
)

func (s writerState) advance() writerState {
	switch s {
	case stateStatusLine:
		return stateHeaders
	case stateHeaders:
		return stateBody
	default:
		return stateDone
	}
}

// Writer serializes a response as HTTP/1.1 in three ordered steps.
type Writer struct {
	w     io.Writer
	state writerState
}

// NewWriter creates a writer positioned at the status line.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, state: stateStatusLine}
}

func (rw *Writer) expect(s writerState) error {
	if rw.state != s {
		return errors.Wrapf(ErrInvalidWriterState, "cannot write %s in state %q", s, rw.state)
	}
	return nil
}

// WriteStatusLine writes "HTTP/1.1 <code> <reason>".
func (rw *Writer) WriteStatusLine(code StatusCode) error {
	if err := rw.expect(stateStatusLine); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", code, code.Reason()); err != nil {
		return err
	}
	rw.state = rw.state.advance()
	return nil
}

// WriteHeaders writes the header block in sorted order followed by the blank line.
func (rw *Writer) WriteHeaders(h *headers.Headers) error {
	if err := rw.expect(stateHeaders); err != nil {
		return err
	}
	for _, k := range h.Keys() {
		if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", k, h.Get(k)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(rw.w, "\r\n"); err != nil {
		return err
	}
	rw.state = rw.state.advance()
	return nil
}

// WriteBody writes the body bytes.
func (rw *Writer) WriteBody(b []byte) error {
	if err := rw.expect(stateBody); err != nil {
		return err
	}
	if _, err := rw.w.Write(b); err != nil {
		return err
	}
	rw.state = rw.state.advance()
	return nil
}

// Write serializes r to w in HTTP/1.1 wire format.
func (r Response) Write(w io.Writer) error {
	rw := NewWriter(w)
	if err := rw.WriteStatusLine(r.status); err != nil {
		return err
	}
	if err := rw.WriteHeaders(r.headers); err != nil {
		return err
	}
	if len(r.body) > 0 {
		return rw.WriteBody(r.body)
	}
	return nil
}
