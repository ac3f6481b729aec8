// internal/writer/cbor.go
package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/tamzrod/tag-poller/internal/poller"
)

var (
	recordEncMode cbor.EncMode
	recordDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	recordEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	recordDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create record CBOR decoder mode: %v", err))
	}
}

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("writer: closed")

// CBORWriter appends one Record per poll result to a file.
// It is safe for concurrent use.
type CBORWriter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewCBORWriter opens path for append, creating it with 0644 if missing.
func NewCBORWriter(path string) (*CBORWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("writer: open %s: %w", path, err)
	}
	return &CBORWriter{
		file:    f,
		encoder: recordEncMode.NewEncoder(f),
	}, nil
}

// Write encodes interrupted results too; the record carries the flag.
func (w *CBORWriter) Write(res poller.PollResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if err := w.encoder.Encode(NewRecord(res)); err != nil {
		return fmt.Errorf("writer: encode record for %s: %w", res.UnitID, err)
	}
	return nil
}

// Close is safe to call more than once.
func (w *CBORWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// ReadRecords decodes every record in r until EOF.
func ReadRecords(r io.Reader) ([]Record, error) {
	dec := recordDecMode.NewDecoder(r)

	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("writer: decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}
