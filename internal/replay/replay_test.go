package replay

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mjolnir/internal/hand"
)

func skeletonAt(side hand.Side, ts float64) hand.Skeleton {
	s := hand.Skeleton{Side: side, Orientation: mgl64.QuatIdent(), Timestamp: ts}
	s.SetJoint(hand.Wrist, mgl64.Vec3{0, 1, 0})
	s.SetJoint(hand.Palm, mgl64.Vec3{0, 1.05, 0})
	return s
}

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	frames := [][]hand.Skeleton{
		{skeletonAt(hand.Left, 0.0)},
		{},
		{skeletonAt(hand.Left, 0.1), skeletonAt(hand.Right, 0.1)},
	}
	for _, f := range frames {
		require.NoError(t, w.Write(f))
	}
	assert.Equal(t, 3, w.Frames())
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"), "one line per frame")

	r := NewReader(&buf)
	ctx := context.Background()

	got, err := r.Next(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hand.Left, got[0].Side)
	p, ok := got[0].Joint(hand.Palm)
	assert.True(t, ok)
	assert.Equal(t, mgl64.Vec3{0, 1.05, 0}, p)
	_, ok = got[0].Joint(hand.IndexTip)
	assert.False(t, ok)

	got, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Next(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, hand.Right, got[1].Side)
	assert.Equal(t, 0.1, got[1].Timestamp)

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_SkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("\n[]\n\n[]\n"))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := r.Next(ctx)
		require.NoError(t, err)
	}
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_InvalidLine(t *testing.T) {
	r := NewReader(strings.NewReader("[]\n{oops\n"))
	ctx := context.Background()

	_, err := r.Next(ctx)
	require.NoError(t, err)

	_, err = r.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session line 2")
}

func TestReader_CanceledContext(t *testing.T) {
	r := NewReader(strings.NewReader("[]\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_Realtime(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write([]hand.Skeleton{skeletonAt(hand.Right, 5.0)}))
	require.NoError(t, w.Write([]hand.Skeleton{skeletonAt(hand.Right, 5.1)}))

	r := NewReader(&buf)
	r.SetRealtime(true)
	ctx := context.Background()

	start := time.Now()
	_, err := r.Next(ctx)
	require.NoError(t, err)
	_, err = r.Next(ctx)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write([]hand.Skeleton{skeletonAt(hand.Left, 1)}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	frame, err := r.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, frame, 1)
	assert.Equal(t, 1.0, frame[0].Timestamp)

	_, err = Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

type sliceSource struct {
	frames [][]hand.Skeleton
}

func (s *sliceSource) Next(ctx context.Context) ([]hand.Skeleton, error) {
	if len(s.frames) == 0 {
		return nil, io.EOF
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func TestRecorder(t *testing.T) {
	var buf bytes.Buffer
	src := &sliceSource{frames: [][]hand.Skeleton{
		{skeletonAt(hand.Left, 0)},
		{skeletonAt(hand.Left, 0.05)},
	}}
	rec := NewRecorder(src, NewWriter(&buf))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := rec.Next(ctx)
		require.NoError(t, err)
	}
	_, err := rec.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	r := NewReader(&buf)
	for i := 0; i < 2; i++ {
		_, err := r.Next(ctx)
		require.NoError(t, err)
	}
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
