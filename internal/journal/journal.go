// Package journal archives game events as zstd-compressed JSON lines.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/HouseOfHufflepuff/kill/internal/game"
)

// Ext is the file extension of journal files.
const Ext = ".jsonl.zst"

// Writer encodes events onto a single compressed stream.
type Writer struct {
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewWriter wraps dst. Close must be called to flush the zstd frame; it
// does not close dst.
func NewWriter(dst io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

// Write appends one event as a JSON line.
func (w *Writer) Write(ev game.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines into the compressor.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close flushes and finishes the compressed stream.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.enc.Close()
		return err
	}
	return w.enc.Close()
}

// Export writes events to a new file at path, replacing any existing one.
func Export(path string, events []game.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("journal: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("journal: cannot create %s: %w", path, err)
	}
	defer f.Close()

	w, err := NewWriter(f)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			w.Close()
			return fmt.Errorf("journal: cannot write event %d: %w", ev.Seq, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}

// Read decodes every event in a journal file and calls fn for each.
func Read(path string, fn func(game.Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Decode(f, fn)
}

// Decode reads events from a compressed stream.
func Decode(src io.Reader, fn func(game.Event) error) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ev game.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return fmt.Errorf("journal: line %d: %w", line, err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Rotating appends events to hourly files under a directory, named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst. Each line is flushed as it is written.
type Rotating struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	w       *Writer
}

// NewRotating creates a rotating journal. Nothing is opened until the first
// write.
func NewRotating(baseDir, prefix string) *Rotating {
	return &Rotating{baseDir: baseDir, prefix: prefix, now: time.Now}
}

// Write appends ev to the file for the current hour.
func (r *Rotating) Write(ev game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hour := r.now().UTC().Format("2006-01-02-15")
	if hour != r.curHour {
		if err := r.rotateLocked(hour); err != nil {
			return err
		}
	}
	if err := r.w.Write(ev); err != nil {
		return err
	}
	return r.w.Flush()
}

// Close finishes the current file.
func (r *Rotating) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Rotating) rotateLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	path := r.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	w, err := NewWriter(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.w = w
	r.curHour = hour
	return nil
}

func (r *Rotating) closeLocked() error {
	var err error
	if r.w != nil {
		err = r.w.Close()
		r.w = nil
	}
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	r.curHour = ""
	return err
}

func (r *Rotating) pathForHour(hour string) string {
	return filepath.Join(r.baseDir, fmt.Sprintf("%s-%s%s", r.prefix, hour, Ext))
}
