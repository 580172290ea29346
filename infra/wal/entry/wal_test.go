package entry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestWAL(t *testing.T, cfg Config) *WAL {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	w, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func segments(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "segment-*.wal"))
	require.NoError(t, err)
	return files
}

func TestAppendReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir})

	payloads := [][]byte{[]byte("alpha"), []byte("beta"), nil, []byte("gamma")}
	for i, p := range payloads {
		require.NoError(t, w.Append(NewRecord(RecordSubmit, uint64(i+1), p)))
	}
	require.NoError(t, w.Sync())

	var got []*Record
	last, err := Replay(dir, func(r *Record) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), last)
	require.Len(t, got, len(payloads))
	for i, r := range got {
		assert.Equal(t, RecordSubmit, r.Type)
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, payloads[i], r.Data)
		assert.NotZero(t, r.Time)
	}
}

func TestReplayEmptyDir(t *testing.T) {
	last, err := Replay(t.TempDir(), func(*Record) error {
		t.Fatal("handler called on empty log")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, last)
}

func TestReplayRejectsNonMonotonicSeq(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir})
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 5, []byte("a"))))
	require.NoError(t, w.Append(NewRecord(RecordCancel, 5, []byte("b"))))

	_, err := Replay(dir, func(*Record) error { return nil })
	assert.ErrorContains(t, err, "non-monotonic")
}

func TestReplayStopsAtTornTail(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir})
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("whole"))))
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 2, []byte("torn"))))
	require.NoError(t, w.Close())

	files := segments(t, dir)
	require.Len(t, files, 1)
	info, err := os.Stat(files[0])
	require.NoError(t, err)
	require.NoError(t, os.Truncate(files[0], info.Size()-3))

	var seqs []uint64
	last, err := Replay(dir, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err, "a torn tail is end of log, not corruption")
	assert.Equal(t, []uint64{1}, seqs)
	assert.Equal(t, uint64(1), last)
}

func TestReplayDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir})
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("payload"))))
	require.NoError(t, w.Close())

	files := segments(t, dir)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	raw[23] ^= 0xff // flip a payload byte, keeping the stored crc
	require.NoError(t, os.WriteFile(files[0], raw, 0o644))

	_, err = Replay(dir, func(*Record) error { return nil })
	assert.ErrorContains(t, err, "crc mismatch")
}

func TestSizeRotation(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir, SegmentSize: 64})

	payload := make([]byte, 40)
	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, w.Append(NewRecord(RecordSubmit, i, payload)))
	}
	assert.Greater(t, len(segments(t, dir)), 1, "size threshold must rotate")

	var count int
	last, err := Replay(dir, func(*Record) error { count++; return nil })
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, uint64(5), last)
}

func TestReopenResumesAppending(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, []byte("first"))))
	require.NoError(t, w.Close())

	w, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 2, []byte("second"))))
	require.NoError(t, w.Close())

	var seqs []uint64
	_, err = Replay(dir, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seqs)
}

func TestTruncateBefore(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir, SegmentSize: 64})

	payload := make([]byte, 40)
	for i := uint64(1); i <= 6; i++ {
		require.NoError(t, w.Append(NewRecord(RecordSubmit, i, payload)))
	}
	before := segments(t, dir)
	require.Greater(t, len(before), 2)

	require.NoError(t, w.TruncateBefore(3))
	after := segments(t, dir)
	assert.Less(t, len(after), len(before))

	// Everything past the snapshot point must survive.
	var seqs []uint64
	_, err := Replay(dir, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, seqs)
	assert.GreaterOrEqual(t, seqs[0], uint64(3))
	assert.Equal(t, uint64(6), seqs[len(seqs)-1])
}

// Truncation leaves a gap of low segment indexes. A reopen must resume
// at the highest surviving index, not re-create files inside the gap,
// or post-restart appends sort before the surviving tail and replay
// sees the sequence go backwards.
func TestTruncateThenReopenKeepsReplayMonotonic(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(Config{Dir: dir, SegmentSize: 64})
	require.NoError(t, err)

	payload := make([]byte, 40)
	for i := uint64(1); i <= 6; i++ {
		require.NoError(t, w.Append(NewRecord(RecordSubmit, i, payload)))
	}
	require.NoError(t, w.TruncateBefore(4))
	require.NoError(t, w.Close())

	w, err = Open(Config{Dir: dir, SegmentSize: 64})
	require.NoError(t, err)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 7, payload)))
	require.NoError(t, w.Close())

	var seqs []uint64
	last, err := Replay(dir, func(r *Record) error {
		seqs = append(seqs, r.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), last)
	require.NotEmpty(t, seqs)
	assert.Equal(t, uint64(7), seqs[len(seqs)-1], "post-reopen append replays last")
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestCRCHelpers(t *testing.T) {
	data := []byte("frame")
	sum := CRC32(data)
	assert.True(t, CRC32Valid(data, sum))
	assert.False(t, CRC32Valid([]byte("framf"), sum))
}

func TestTimeRotation(t *testing.T) {
	dir := t.TempDir()
	w := openTestWAL(t, Config{Dir: dir, SegmentDuration: time.Nanosecond})
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 1, nil)))
	time.Sleep(time.Millisecond)
	require.NoError(t, w.Append(NewRecord(RecordSubmit, 2, nil)))
	assert.GreaterOrEqual(t, len(segments(t, dir)), 2)
}
