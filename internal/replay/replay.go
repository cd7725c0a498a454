// Package replay records hand-tracking sessions as JSON lines and plays
// them back. Each line holds every skeleton seen in one frame.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ayusman/mjolnir/internal/hand"
)

// maxLine bounds one encoded frame.
const maxLine = 1 << 20

// Writer appends frames to a session.
type Writer struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	frames int
}

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Create creates or truncates the session file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", path, err)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Write appends one frame.
func (w *Writer) Write(frame []hand.Skeleton) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if frame == nil {
		frame = []hand.Skeleton{}
	}
	if err := w.enc.Encode(frame); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close closes the underlying file, if the Writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Reader plays a session back one frame per Next call.
type Reader struct {
	scanner  *bufio.Scanner
	closer   io.Closer
	realtime bool
	line     int
	origin   float64
	started  time.Time
}

// NewReader creates a Reader on r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Reader{scanner: scanner}
}

// Open opens the session file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", path, err)
	}
	r := NewReader(f)
	r.closer = f
	return r, nil
}

// SetRealtime makes Next wait between frames according to their
// timestamps instead of returning as fast as possible.
func (r *Reader) SetRealtime(realtime bool) {
	r.realtime = realtime
}

// Next returns the next frame. It returns io.EOF at the end of the session.
// Blank lines are skipped.
func (r *Reader) Next(ctx context.Context) ([]hand.Skeleton, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var frame []hand.Skeleton
		if err := json.Unmarshal(line, &frame); err != nil {
			return nil, fmt.Errorf("session line %d: %w", r.line, err)
		}

		if r.realtime {
			if err := r.wait(ctx, frame); err != nil {
				return nil, err
			}
		}
		return frame, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return nil, io.EOF
}

// wait sleeps until the frame's timestamp relative to the first frame.
func (r *Reader) wait(ctx context.Context, frame []hand.Skeleton) error {
	if len(frame) == 0 {
		return nil
	}
	ts := frame[0].Timestamp

	if r.started.IsZero() {
		r.started = time.Now()
		r.origin = ts
		return nil
	}
	if ts <= r.origin {
		return nil
	}

	due := time.Duration((ts - r.origin) * float64(time.Second))
	delay := time.Until(r.started.Add(due))
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close closes the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// source is anything that yields frames.
type source interface {
	Next(ctx context.Context) ([]hand.Skeleton, error)
}

// Recorder passes frames through from a source while writing each one to
// a session.
type Recorder struct {
	src source
	w   *Writer
}

// NewRecorder wraps src so every frame it yields is written to w.
func NewRecorder(src source, w *Writer) *Recorder {
	return &Recorder{src: src, w: w}
}

// Next returns the source's next frame after recording it.
func (r *Recorder) Next(ctx context.Context) ([]hand.Skeleton, error) {
	frame, err := r.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.w.Write(frame); err != nil {
		return nil, err
	}
	return frame, nil
}
