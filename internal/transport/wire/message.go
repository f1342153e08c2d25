// Package wire is a small HTTP/1.1 server speaking the protocol directly
// over TCP: request parsing, keep-alive and response framing.
package wire

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shravanasati/relay/internal/headers"
)

const (
	maxLineBytes   = 8 << 10
	maxHeaderLines = 100
)

var crlf = []byte("\r\n")

var requestLineRegex = regexp.MustCompile(`^([A-Z]+) (\S+) (HTTP/1\.[01])$`)

// Message is a request as read off the connection. A chunked body is
// already decoded and reported through content-length.
type Message struct {
	Method  string
	Target  string
	Proto   string
	Headers *headers.Headers
	Body    []byte
}

// KeepAlive reports whether the client allows the connection to be reused.
func (m *Message) KeepAlive() bool {
	conn := strings.ToLower(m.Headers.Get("connection"))
	if m.Proto == "HTTP/1.0" {
		return hasToken(conn, "keep-alive")
	}
	return !hasToken(conn, "close")
}

func hasToken(list, token string) bool {
	for part := range strings.SplitSeq(list, ",") {
		if strings.TrimSpace(part) == token {
			return true
		}
	}
	return false
}

// readLine reads one CRLF terminated line without the terminator. It
// returns io.EOF only when the reader is exhausted before any byte.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > maxLineBytes {
			return nil, ErrHeaderTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return nil, ErrIncompleteRequest
		}
		return nil, err
	}
	if !bytes.HasSuffix(line, crlf) {
		return nil, ErrMalformedLine
	}
	return line[:len(line)-len(crlf)], nil
}

func parseRequestLine(line []byte) (method, target, proto string, err error) {
	matches := requestLineRegex.FindSubmatch(line)
	if matches == nil {
		return "", "", "", errors.Wrapf(ErrIncorrectRequestLine, "%q", line)
	}
	return string(matches[1]), string(matches[2]), string(matches[3]), nil
}

// ReadRequest reads the next request from br. Bodies larger than maxBody
// fail with ErrBodyTooLarge; maxBody <= 0 means no limit. A clean end of
// stream before the request line is reported as io.EOF.
func ReadRequest(br *bufio.Reader, maxBody int64) (*Message, error) {
	line, err := readLine(br)
	// a single empty line before the request line is tolerated
	if err == nil && len(line) == 0 {
		line, err = readLine(br)
	}
	if err != nil {
		return nil, err
	}

	method, target, proto, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}
	msg := &Message{Method: method, Target: target, Proto: proto, Headers: headers.NewHeaders()}

	for count := 0; ; count++ {
		if count == maxHeaderLines {
			return nil, ErrHeaderTooLarge
		}
		line, err := readLine(br)
		if errors.Is(err, io.EOF) {
			return nil, ErrIncompleteRequest
		}
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		if err := msg.Headers.ParseFieldLine(line); err != nil {
			return nil, errors.Wrapf(err, "%q", line)
		}
	}

	if msg.Body, err = readBody(br, msg.Headers, maxBody); err != nil {
		return nil, err
	}
	return msg, nil
}

// transferEncodings returns the listed encodings. Only "chunked" can be
// decoded, so anything else is rejected.
func transferEncodings(h *headers.Headers) ([]string, error) {
	raw := h.Get("transfer-encoding")
	if raw == "" {
		return nil, nil
	}
	var encodings []string
	for part := range strings.SplitSeq(raw, ",") {
		encodings = append(encodings, strings.ToLower(strings.TrimSpace(part)))
	}
	if len(encodings) != 1 || encodings[0] != "chunked" {
		return nil, errors.Wrapf(ErrUnsupportedTransferEncoding, "%q", raw)
	}
	return encodings, nil
}

func readBody(br *bufio.Reader, h *headers.Headers, maxBody int64) ([]byte, error) {
	if h.Has("content-length") && h.Has("transfer-encoding") {
		return nil, ErrConflictingFraming
	}

	encodings, err := transferEncodings(h)
	if err != nil {
		return nil, err
	}
	if len(encodings) > 0 {
		body, err := readChunked(br, maxBody)
		if err != nil {
			return nil, err
		}
		h.Remove("transfer-encoding")
		h.Set("content-length", strconv.Itoa(len(body)))
		return body, nil
	}

	if !h.Has("content-length") {
		return nil, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(h.Get("content-length")), 10, 64)
	if err != nil || n < 0 {
		return nil, errors.Wrapf(ErrInvalidContentLength, "%q", h.Get("content-length"))
	}
	if maxBody > 0 && n > maxBody {
		return nil, ErrBodyTooLarge
	}
	if maxBody <= 0 {
		// without a limit the declared length is not trusted for allocation
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, br, n); err != nil {
			return nil, ErrIncompleteRequest
		}
		return buf.Bytes(), nil
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, ErrIncompleteRequest
	}
	return body, nil
}

// readChunked decodes a chunked body and discards any trailer fields.
func readChunked(br *bufio.Reader, maxBody int64) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, chunkErr(err)
		}
		sizeField, _, _ := bytes.Cut(line, []byte(";"))
		size, err := strconv.ParseInt(string(bytes.TrimSpace(sizeField)), 16, 64)
		if err != nil || size < 0 {
			return nil, errors.Wrapf(ErrMalformedChunk, "size %q", sizeField)
		}
		if size == 0 {
			break
		}
		if maxBody > 0 && int64(buf.Len())+size > maxBody {
			return nil, ErrBodyTooLarge
		}
		if _, err := io.CopyN(&buf, br, size); err != nil {
			return nil, ErrIncompleteRequest
		}
		end, err := readLine(br)
		if err != nil {
			return nil, chunkErr(err)
		}
		if len(end) != 0 {
			return nil, errors.Wrap(ErrMalformedChunk, "data longer than its size")
		}
	}

	for {
		trailer, err := readLine(br)
		if err != nil {
			return nil, chunkErr(err)
		}
		if len(trailer) == 0 {
			return buf.Bytes(), nil
		}
	}
}

func chunkErr(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrIncompleteRequest
	}
	return err
}
