package journal

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tuanvumaihuynh/shop-simulator/internal/config"
	"github.com/tuanvumaihuynh/shop-simulator/internal/model"
)

var ErrClosed = errors.New("journal closed")

// Writer appends XML mutation records to a single file it owns.
// Each record is encoded in memory and written with one call under the lock,
// so concurrent appenders never interleave.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	sync bool
}

// Open opens (creating if needed) the journal file in append mode.
func Open(cfg config.Journal) (*Writer, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	return &Writer{f: f, sync: cfg.Sync}, nil
}

// Append writes rec to the journal. The record is already committed to the
// catalog, so Append ignores cancellation of ctx.
func (w *Writer) Append(_ context.Context, rec model.Record) error {
	buf, err := Encode(rec)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return ErrClosed
	}

	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	if w.sync {
		if err := w.f.Sync(); err != nil {
			return fmt.Errorf("sync journal file: %w", err)
		}
	}

	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	err := w.f.Close()
	w.f = nil
	if err != nil {
		return fmt.Errorf("close journal file: %w", err)
	}
	return nil
}

// Encode renders one record as an indented XML element followed by a newline.
func Encode(rec model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode %s record: %w", rec.Kind(), err)
	}
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Decode reads every record from a journal stream in file order.
func Decode(r io.Reader) ([]model.Record, error) {
	dec := xml.NewDecoder(r)

	var records []model.Record
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "CustomerAction":
			var rec model.CustomerAction
			if err := dec.DecodeElement(&rec, &start); err != nil {
				return nil, fmt.Errorf("decode customer action: %w", err)
			}
			records = append(records, rec)
		case "ReplenishmentAction":
			var rec model.ReplenishmentAction
			if err := dec.DecodeElement(&rec, &start); err != nil {
				return nil, fmt.Errorf("decode replenishment action: %w", err)
			}
			records = append(records, rec)
		default:
			return nil, fmt.Errorf("unknown record element %q", start.Name.Local)
		}
	}
}

// ReadFile decodes the journal at path.
func ReadFile(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
