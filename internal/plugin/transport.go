package plugin

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxMessageSize bounds a single framed message per spec.md §4.8's
// "messages above 10MiB are rejected, not buffered" limit.
const maxMessageSize = 10 << 20

// Transport moves length-prefixed frames to and from a running plugin.
// The process-based implementation below satisfies it for child-process
// plugins launched over stdio; internal/plugin/wasmtransport provides a
// second implementation over a WASI guest's in-memory pipes.
type Transport interface {
	WriteFrame(payload []byte) error
	ReadFrame() ([]byte, error)
	Close() error
}

// processTransport frames messages as [4-byte big-endian length][payload]
// over a child process's stdin/stdout, per spec.md §4.8.
type processTransport struct {
	w io.WriteCloser
	r io.ReadCloser
}

func newProcessTransport(w io.WriteCloser, r io.ReadCloser) *processTransport {
	return &processTransport{w: w, r: r}
}

func (t *processTransport) WriteFrame(payload []byte) error {
	if len(payload) > maxMessageSize {
		return fmt.Errorf("plugin: outgoing frame of %d bytes exceeds %d byte limit", len(payload), maxMessageSize)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := t.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := t.w.Write(payload)
	return err
}

func (t *processTransport) ReadFrame() ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(t.r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxMessageSize {
		return nil, fmt.Errorf("plugin: incoming frame of %d bytes exceeds %d byte limit", n, maxMessageSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *processTransport) Close() error {
	werr := t.w.Close()
	rerr := t.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
